package draw

import (
	"fmt"
	"math"

	"github.com/npillmayer/chartscript/dsl"
)

type builder func(args []dsl.Value) (Command, error)

var builders = map[string]builder{
	"line":   seriesCmd("line"),
	"area":   seriesCmd("area"),
	"bar":    seriesCmd("bar"),
	"candle": candleCmd,
	"label":  anchorCmd("label", true),
	"shape":  anchorCmd("shape", false),
	"icon":   anchorCmd("icon", true),
	"circle": anchorCmd("circle", false),
	"rect":   rectCmd,
}

// Full is the list of operations of the drawing namespace.
var Full = []string{"line", "area", "bar", "candle", "label", "shape", "rect", "circle", "icon"}

// Bridge is the list of operations available on another pane's surface.
var Bridge = []string{"line", "label", "shape"}

// Namespace creates the drawing namespace for a surface.
func Namespace(s Surface) *dsl.Object {
	return namespace(s, Full)
}

// Restricted creates a namespace offering only the operations of Bridge.
func Restricted(s Surface) *dsl.Object {
	return namespace(s, Bridge)
}

func namespace(s Surface, ops []string) *dsl.Object {
	ns := dsl.NewObject()
	for _, op := range ops {
		build := builders[op]
		name := op
		ns.Set(op, dsl.NativeFn(op, func(args []dsl.Value) (dsl.Value, error) {
			cmd, err := build(args)
			if err != nil {
				return dsl.Null, fmt.Errorf("draw.%s: %w", name, err)
			}
			s.Add(cmd)
			return dsl.Null, nil
		}))
	}
	ns.Set("width", dsl.Num(s.Size().W))
	ns.Set("height", dsl.Num(s.Size().H))
	return ns
}

func seriesArg(v dsl.Value) ([]float64, error) {
	if v.Tag != dsl.VTArray {
		return nil, fmt.Errorf("%w: expected series, is %s", dsl.ErrArgument, v.Tag)
	}
	return v.AsArray().Floats(), nil
}

func numberArg(v dsl.Value, what string) (float64, error) {
	if v.Tag != dsl.VTNum || math.IsNaN(v.AsNum()) {
		return 0, fmt.Errorf("%w: expected %s, is %s", dsl.ErrArgument, what, v)
	}
	return v.AsNum(), nil
}

// styleArg converts a style value. A plain string is taken as a color.
func styleArg(v dsl.Value) map[string]interface{} {
	switch v.Tag {
	case dsl.VTObject:
		m, _ := v.Interface().(map[string]interface{})
		return m
	case dsl.VTStr:
		return map[string]interface{}{"color": v.AsStr()}
	}
	return map[string]interface{}{}
}

func seriesCmd(op string) builder {
	return func(args []dsl.Value) (Command, error) {
		s, err := seriesArg(dsl.Arg(args, 0))
		if err != nil {
			return Command{}, err
		}
		return Command{Op: op, Series: s, Style: styleArg(dsl.Arg(args, 1))}, nil
	}
}

func candleCmd(args []dsl.Value) (Command, error) {
	cmd := Command{Op: "candle", Style: styleArg(dsl.Arg(args, 4))}
	for i := 0; i < 4; i++ {
		s, err := seriesArg(dsl.Arg(args, i))
		if err != nil {
			return Command{}, err
		}
		cmd.Aux = append(cmd.Aux, s)
	}
	return cmd, nil
}

// anchorCmd builds commands anchored at (index, price), optionally with a
// text argument following the anchor.
func anchorCmd(op string, withText bool) builder {
	return func(args []dsl.Value) (Command, error) {
		x, err := numberArg(dsl.Arg(args, 0), "bar index")
		if err != nil {
			return Command{}, err
		}
		y, err := numberArg(dsl.Arg(args, 1), "price")
		if err != nil {
			return Command{}, err
		}
		cmd := Command{Op: op, Points: []Point{{X: x, Y: y}}}
		next := 2
		if withText {
			cmd.Text = dsl.Arg(args, 2).String()
			next = 3
		}
		cmd.Style = styleArg(dsl.Arg(args, next))
		return cmd, nil
	}
}

func rectCmd(args []dsl.Value) (Command, error) {
	var coords [4]float64
	for i, what := range []string{"bar index", "price", "bar index", "price"} {
		c, err := numberArg(dsl.Arg(args, i), what)
		if err != nil {
			return Command{}, err
		}
		coords[i] = c
	}
	return Command{
		Op:     "rect",
		Points: []Point{{X: coords[0], Y: coords[1]}, {X: coords[2], Y: coords[3]}},
		Style:  styleArg(dsl.Arg(args, 4)),
	}, nil
}
