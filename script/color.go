package script

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// named color keywords
var namedColors = map[string]string{
	"black": "#000000", "white": "#ffffff", "red": "#ff0000", "green": "#008000",
	"blue": "#0000ff", "yellow": "#ffff00", "orange": "#ffa500", "purple": "#800080",
	"gray": "#808080", "grey": "#808080", "silver": "#c0c0c0", "lime": "#00ff00",
	"aqua": "#00ffff", "cyan": "#00ffff", "teal": "#008080", "navy": "#000080",
	"maroon": "#800000", "olive": "#808000", "fuchsia": "#ff00ff", "magenta": "#ff00ff",
	"pink": "#ffc0cb", "brown": "#a52a2a", "gold": "#ffd700", "indigo": "#4b0082",
	"violet": "#ee82ee", "transparent": "#00000000",
}

var (
	hexColor  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor = regexp.MustCompile(`^(rgba?|hsla?)\s*\(([^()]*)\)$`)
)

// ParseColor recognizes hex colors (#rgb, #rgba, #rrggbb, #rrggbbaa),
// rgb(), rgba(), hsl(), hsla() and named color keywords. It returns the
// color normalized to lower-case #rrggbb, or #rrggbbaa if not opaque.
func ParseColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	if hexColor.MatchString(s) {
		return normalizeHex(strings.ToLower(s[1:])), nil
	}
	m := funcColor.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return "", fmt.Errorf("%q is not a color", s)
	}
	parts := strings.Split(m[2], ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	withAlpha := strings.HasSuffix(m[1], "a")
	if withAlpha && len(parts) != 4 || !withAlpha && len(parts) != 3 {
		return "", fmt.Errorf("%s() expects %d components in %q", m[1], 3+btoi(withAlpha), s)
	}
	alpha := 1.0
	if withAlpha {
		a, err := component(parts[3], 1, true)
		if err != nil {
			return "", fmt.Errorf("alpha of %q: %w", s, err)
		}
		alpha = a
	}
	var r, g, b float64
	if strings.HasPrefix(m[1], "rgb") {
		var err error
		if r, err = component(parts[0], 255, true); err == nil {
			if g, err = component(parts[1], 255, true); err == nil {
				b, err = component(parts[2], 255, true)
			}
		}
		if err != nil {
			return "", fmt.Errorf("%q: %w", s, err)
		}
	} else {
		h, err := strconv.ParseFloat(strings.TrimSuffix(parts[0], "deg"), 64)
		if err != nil {
			return "", fmt.Errorf("hue of %q is not a number", s)
		}
		sat, err1 := component(parts[1], 1, false)
		lig, err2 := component(parts[2], 1, false)
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("%q: saturation and lightness must be percentages", s)
		}
		r, g, b = hslToRGB(h, sat, lig)
	}
	out := fmt.Sprintf("#%02x%02x%02x", round(r), round(g), round(b))
	if alpha < 1 {
		out += fmt.Sprintf("%02x", round(alpha*255))
	}
	return out, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// component parses a color component, either as a plain number in
// [0, scale] (if plain is true) or as a percentage of scale.
func component(s string, scale float64, plain bool) (float64, error) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil || f < 0 || f > 100 {
			return 0, fmt.Errorf("component %q out of range", s)
		}
		return f / 100 * scale, nil
	}
	if !plain {
		return 0, fmt.Errorf("component %q must be a percentage", s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > scale {
		return 0, fmt.Errorf("component %q out of range", s)
	}
	return f, nil
}

func round(f float64) int {
	return int(math.Floor(f + 0.5))
}

func normalizeHex(h string) string {
	if len(h) == 3 || len(h) == 4 {
		var b strings.Builder
		for _, c := range h {
			b.WriteRune(c)
			b.WriteRune(c)
		}
		h = b.String()
	}
	if len(h) == 8 && h[6:] == "ff" {
		h = h[:6]
	}
	return "#" + h
}

func hslToRGB(h, s, l float64) (float64, float64, float64) {
	h = math.Mod(math.Mod(h, 360)+360, 360) / 360
	if s == 0 {
		return l * 255, l * 255, l * 255
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	hue := func(t float64) float64 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		switch {
		case t < 1.0/6:
			return p + (q-p)*6*t
		case t < 1.0/2:
			return q
		case t < 2.0/3:
			return p + (q-p)*(2.0/3-t)*6
		}
		return p
	}
	return hue(h+1.0/3) * 255, hue(h) * 255, hue(h-1.0/3) * 255
}
