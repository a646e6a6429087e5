package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/c360studio/gridskel/config"
	"github.com/c360studio/gridskel/reshape"
	"github.com/c360studio/gridskel/schema"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema.yaml>",
		Short: "Validate a schema declaration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			reg, err := s.Build()
			if err != nil {
				return fmt.Errorf("invalid schema: %w", err)
			}

			fmt.Printf("%s: ok (%s)\n", s.Name, s.Spatial)
			fmt.Printf("  %d coordinates, %d variables, %d masks, %d vector pairs\n",
				len(reg.ByKind(schema.KindCoordinate)),
				len(reg.ByKind(schema.KindDataVar)),
				len(reg.ByKind(schema.KindMask)),
				len(s.Vectors))
			return nil
		},
	}
}

func inspectCmd() *cobra.Command {
	var glob string

	cmd := &cobra.Command{
		Use:   "inspect <schema.yaml>",
		Short: "List the registered fields of a schema declaration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			reg, err := s.Build()
			if err != nil {
				return err
			}

			for _, name := range reg.Names() {
				if glob != "" {
					match, err := doublestar.Match(glob, name)
					if err != nil {
						return fmt.Errorf("bad glob %q: %w", glob, err)
					}
					if !match {
						continue
					}
				}
				fmt.Println(describe(reg, name))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&glob, "glob", "g", "", "Only show fields matching this glob (e.g. '*_mask')")
	return cmd
}

func describe(reg *schema.Registry, name string) string {
	switch e := reg.Lookup(name).(type) {
	case *schema.Coordinate:
		kind := "gridpoint coordinate"
		if e.Spatial {
			kind = "spatial coordinate"
		} else if e.Grid {
			kind = "grid coordinate"
		}
		return fmt.Sprintf("%-16s %s", name, kind)
	case *schema.DataVar:
		return fmt.Sprintf("%-16s variable over %s (default %g)", name, e.CoordGroup, e.DefaultValue)
	case *schema.GridMask:
		s := fmt.Sprintf("%-16s mask over %s", name, e.CoordGroup)
		if e.OppositeOf != "" {
			return s + fmt.Sprintf(", complement of %s", e.OppositeOf)
		}
		if e.TriggeredBy != "" {
			s += fmt.Sprintf(", triggered by %s in %s", e.TriggeredBy, formatRange(e))
		}
		return s
	case *schema.Magnitude:
		return fmt.Sprintf("%-16s magnitude of (%s, %s)", name, e.X, e.Y)
	case *schema.Direction:
		return fmt.Sprintf("%-16s direction of (%s, %s), %s convention", name, e.X, e.Y, e.DirType)
	default:
		return name
	}
}

func formatRange(m *schema.GridMask) string {
	open, closed := "(", ")"
	if m.RangeInclusive[0] {
		open = "["
	}
	if m.RangeInclusive[1] {
		closed = "]"
	}
	lo, hi := "-inf", "+inf"
	if !math.IsInf(m.ValidRange[0], -1) {
		lo = strconv.FormatFloat(m.ValidRange[0], 'g', -1, 64)
	}
	if !math.IsInf(m.ValidRange[1], 1) {
		hi = strconv.FormatFloat(m.ValidRange[1], 'g', -1, 64)
	}
	return open + lo + ", " + hi + closed
}

func shapeCmd() *cobra.Command {
	var coordLengths []string

	cmd := &cobra.Command{
		Use:   "shape <schema.yaml>",
		Short: "Resolve field shapes for given coordinate lengths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			reg, err := s.Build()
			if err != nil {
				return err
			}

			lengths, err := parseLengths(coordLengths)
			if err != nil {
				return err
			}
			lookup := func(name string) (int, error) {
				n, ok := lengths[name]
				if !ok {
					return 0, fmt.Errorf("no length given for coordinate %q (use --coord %s=N)", name, name)
				}
				return n, nil
			}

			names := reg.Names()
			sort.Strings(names)
			for _, name := range names {
				group, err := reg.CoordGroupOf(name)
				if err != nil {
					continue // coordinates have no group
				}
				coords, err := reg.Coords(group)
				if err != nil {
					return err
				}
				shp, err := reshape.Shape(coords, lookup)
				if err != nil {
					return err
				}
				fmt.Printf("%-16s %v over %v\n", name, shp, coords)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&coordLengths, "coord", nil, "Coordinate length as name=N (repeatable)")
	return cmd
}

func parseLengths(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("bad --coord %q, want name=N", p)
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad length in --coord %q", p)
		}
		out[name] = n
	}
	return out, nil
}

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <schema.yaml>",
		Short: "Watch a schema declaration and revalidate on change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := config.NewWatcher(args[0], debounce, nil)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			fmt.Printf("watching %s, ctrl-c to stop\n", args[0])
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					if ev.Err != nil {
						fmt.Printf("invalid: %v\n", ev.Err)
						continue
					}
					fmt.Printf("reloaded %s: %d variables, %d masks\n",
						ev.Schema.Name, len(ev.Schema.Variables), len(ev.Schema.Masks))
				}
			}
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Delay before revalidating after a change")
	return cmd
}
