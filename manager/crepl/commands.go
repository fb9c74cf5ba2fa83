package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/npillmayer/chartscript/chart"
	"github.com/npillmayer/chartscript/manager"
	"github.com/npillmayer/chartscript/script"
	"github.com/npillmayer/chartscript/store"
)

type command struct {
	usage string
	args  int // minimum number of arguments
	run   func(intp *Intp, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":      {"help", 0, (*Intp).help},
		"load":      {"load <key> <file> [origin]", 2, (*Intp).load},
		"list":      {"list", 0, (*Intp).list},
		"show":      {"show <key>", 1, (*Intp).show},
		"listing":   {"listing <key>", 1, (*Intp).listing},
		"set":       {"set <key> <input>=<value> ...", 2, (*Intp).setInputs},
		"style":     {"style <key> <style>=<value> ...", 2, (*Intp).setStyles},
		"visible":   {"visible <key> on|off", 2, (*Intp).visible},
		"remove":    {"remove <key>", 1, (*Intp).remove},
		"recompile": {"recompile [key]", 0, (*Intp).recompile},
		"symbol":    {"symbol <symbol>", 1, (*Intp).symbol},
		"period":    {"period <period>", 1, (*Intp).period},
		"bars":      {"bars <n> | bars load [n]", 1, (*Intp).bars},
		"tick":      {"tick <close>", 1, (*Intp).tick},
		"frame":     {"frame [pane]", 0, (*Intp).frame},
		"console":   {"console <key>", 1, (*Intp).console},
		"save":      {"save", 0, (*Intp).save},
	}
}

// Eval executes one command line. It returns true if the user asked to quit.
func (intp *Intp) Eval(line string) (bool, error) {
	args := strings.Fields(line)
	if args[0] == "quit" || args[0] == "exit" {
		return true, nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return false, fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
	if len(args)-1 < cmd.args {
		return false, fmt.Errorf("usage: %s", cmd.usage)
	}
	tracer().Debugf("command %s %v", args[0], args[1:])
	return false, cmd.run(intp, args[1:])
}

func (intp *Intp) help(args []string) error {
	var ll pterm.LeveledList
	for _, name := range []string{"load", "list", "show", "listing", "set", "style", "visible",
		"remove", "recompile", "symbol", "period", "bars", "tick", "frame", "console", "save"} {
		ll = append(ll, pterm.LeveledListItem{Level: 0, Text: commands[name].usage})
	}
	ll = append(ll, pterm.LeveledListItem{Level: 0, Text: "quit"})
	pterm.DefaultTree.WithRoot(pterm.NewTreeFromLeveledList(ll)).Render()
	return nil
}

func (intp *Intp) load(args []string) error {
	src, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	ro := manager.RegisterOptions{Origin: "user"}
	if len(args) > 2 {
		ro.Origin = args[2]
	}
	return intp.do(func() error {
		inst, errs, err := intp.manager.Register(args[0], string(src), ro)
		if err != nil {
			return err
		}
		for _, e := range errs {
			pterm.Warning.Println(e.Error())
		}
		pterm.Info.Printf("loaded %s (%s), engine v%d, phase %s\n", inst.Key(), inst.Name(), inst.Engine(), inst.Phase())
		return intp.scripts.Save(context.Background(), store.RecordOf(inst))
	})
}

func (intp *Intp) list(args []string) error {
	return intp.do(func() error {
		data := pterm.TableData{{"key", "name", "engine", "phase", "pane", "visible", "routine", "origin"}}
		for _, key := range intp.manager.Keys() {
			inst := intp.manager.Instance(key)
			data = append(data, []string{
				key, inst.Name(), strconv.Itoa(inst.Engine()), inst.Phase().String(),
				inst.Pane().String(), strconv.FormatBool(inst.Visible()),
				strconv.FormatUint(inst.RoutineID(), 10), inst.Origin(),
			})
		}
		pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		return nil
	})
}

func (intp *Intp) instance(key string) (*manager.Instance, error) {
	inst := intp.manager.Instance(key)
	if inst == nil {
		return nil, fmt.Errorf("%w: %s", manager.ErrNoInstance, key)
	}
	return inst, nil
}

func (intp *Intp) show(args []string) error {
	return intp.do(func() error {
		inst, err := intp.instance(args[0])
		if err != nil {
			return err
		}
		ps := inst.Script()
		ll := pterm.LeveledList{{Level: 0, Text: fmt.Sprintf("%s [%s]", inst.Name(), inst.Phase())}}
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: "inputs"})
		for _, d := range ps.Inputs {
			ll = append(ll, pterm.LeveledListItem{Level: 2,
				Text: fmt.Sprintf("%s = %s (%s)", d.Key, inst.Input(d.Key), d.Type)})
		}
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: "styles"})
		for _, d := range ps.Styles {
			ll = append(ll, pterm.LeveledListItem{Level: 2,
				Text: fmt.Sprintf("%s = %s (%s)", d.Key, inst.Style(d.Key), d.Type)})
		}
		ll = append(ll, pterm.LeveledListItem{Level: 1, Text: "calls"})
		for _, c := range ps.Calls {
			ll = append(ll, pterm.LeveledListItem{Level: 2,
				Text: fmt.Sprintf("%s = http.%s(%s) → %s", c.Key, c.Method, c.Args, inst.HTTP(c.Key))})
		}
		if err := inst.GenerateError(); err != nil {
			ll = append(ll, pterm.LeveledListItem{Level: 1, Text: err.Error()})
		}
		pterm.DefaultTree.WithRoot(pterm.NewTreeFromLeveledList(ll)).Render()
		return nil
	})
}

func (intp *Intp) listing(args []string) error {
	return intp.do(func() error {
		inst, err := intp.instance(args[0])
		if err != nil {
			return err
		}
		if inst.Routine() == nil {
			return fmt.Errorf("%s has no routine: %v", args[0], inst.GenerateError())
		}
		pterm.Println(inst.Routine().Listing())
		return nil
	})
}

// presetArgs parses key=value arguments. Values are read as JSON if
// possible, and taken as plain strings otherwise.
func presetArgs(args []string) ([]script.Preset, error) {
	var presets []script.Preset
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, is %q", a)
		}
		var value interface{}
		if err := json.Unmarshal([]byte(v), &value); err != nil {
			value = v
		}
		presets = append(presets, script.Preset{Key: k, Value: value})
	}
	return presets, nil
}

func (intp *Intp) configure(key string, cfg manager.Config) error {
	return intp.do(func() error {
		errs, err := intp.manager.SetConfig(key, cfg)
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		inst := intp.manager.Instance(key)
		return intp.scripts.Save(context.Background(), store.RecordOf(inst))
	})
}

func (intp *Intp) setInputs(args []string) error {
	p, err := presetArgs(args[1:])
	if err != nil {
		return err
	}
	return intp.configure(args[0], manager.Config{Inputs: p})
}

func (intp *Intp) setStyles(args []string) error {
	p, err := presetArgs(args[1:])
	if err != nil {
		return err
	}
	return intp.configure(args[0], manager.Config{Styles: p})
}

func (intp *Intp) visible(args []string) error {
	on := args[1] == "on" || args[1] == "true"
	return intp.do(func() error {
		if !intp.manager.SetVisible(args[0], on) {
			return fmt.Errorf("%w: %s", manager.ErrNoInstance, args[0])
		}
		return nil
	})
}

func (intp *Intp) remove(args []string) error {
	return intp.do(func() error {
		if !intp.manager.Remove(args[0]) {
			return fmt.Errorf("%w: %s", manager.ErrNoInstance, args[0])
		}
		return intp.scripts.Delete(context.Background(), args[0])
	})
}

func (intp *Intp) recompile(args []string) error {
	return intp.do(func() error {
		if len(args) == 0 {
			pterm.Info.Printf("recompiled %d scripts\n", intp.manager.RecompileAll())
			return nil
		}
		if _, err := intp.instance(args[0]); err != nil {
			return err
		}
		if !intp.manager.Recompile(args[0]) {
			pterm.Info.Println("nothing changed")
		}
		return nil
	})
}

func (intp *Intp) symbol(args []string) error {
	return intp.do(func() error {
		intp.chart.SetSymbol(args[0])
		return nil
	})
}

func (intp *Intp) period(args []string) error {
	return intp.do(func() error {
		intp.chart.SetPeriod(args[0])
		return nil
	})
}

// bars replaces the chart data, either by a random walk of n candles or by
// candles read from the database.
func (intp *Intp) bars(args []string) error {
	if args[0] == "load" {
		if intp.db == nil {
			return errors.New("no database configured, use -sqlite")
		}
		limit := 500
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			limit = n
		}
		return intp.do(func() error {
			candles, err := intp.db.ReadCandles(context.Background(), intp.chart.Symbol(), intp.chart.Period(), limit)
			if err != nil {
				return err
			}
			intp.chart.SetDataList(candles)
			pterm.Info.Printf("loaded %d candles\n", len(candles))
			return nil
		})
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("expected a positive number of bars, is %q", args[0])
	}
	return intp.do(func() error {
		candles := randomWalk(n, 100, intp.chart.Period())
		intp.chart.SetDataList(candles)
		if intp.db != nil {
			return intp.db.WriteCandles(context.Background(), intp.chart.Symbol(), intp.chart.Period(), candles)
		}
		return nil
	})
}

// tick appends a candle closing at the given price, one period after the
// last one.
func (intp *Intp) tick(args []string) error {
	price, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	return intp.do(func() error {
		data := intp.chart.DataList()
		c := chart.Candle{Open: price, High: price, Low: price, Close: price}
		if len(data) > 0 {
			last := data[len(data)-1]
			c.Time = last.Time + periodSeconds(intp.chart.Period())
			c.Open = last.Close
			c.High, c.Low = max(c.Open, price), min(c.Open, price)
		}
		intp.chart.Append(c)
		return nil
	})
}

func (intp *Intp) frame(args []string) error {
	id := chart.Primary
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		id = chart.PaneID(n)
	}
	return intp.do(func() error {
		f := intp.chart.Frame(id)
		if f == nil {
			return fmt.Errorf("no frame rendered for pane %s", id)
		}
		ll := pterm.LeveledList{{Level: 0, Text: fmt.Sprintf("pane %s, frame #%d", id, f.Serial)}}
		for i, l := range f.Layers {
			ll = append(ll, pterm.LeveledListItem{Level: 1, Text: fmt.Sprintf("layer %d at %s", i, l.At)})
			for _, c := range l.Commands {
				text := c.Op
				if len(c.Series) > 0 {
					text = fmt.Sprintf("%s (%d values)", c.Op, len(c.Series))
				} else if c.Text != "" {
					text = fmt.Sprintf("%s %q", c.Op, c.Text)
				}
				ll = append(ll, pterm.LeveledListItem{Level: 2, Text: text})
			}
		}
		pterm.DefaultTree.WithRoot(pterm.NewTreeFromLeveledList(ll)).Render()
		return nil
	})
}

func (intp *Intp) console(args []string) error {
	for _, m := range intp.feed.History(args[0]) {
		pterm.Println(m.Time.Format("15:04:05") + " " + m.String())
	}
	return nil
}

func (intp *Intp) save(args []string) error {
	return intp.do(func() error {
		return store.SaveAll(context.Background(), intp.scripts, intp.manager)
	})
}
