// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command tacdump lowers demo programs into three-address form and
// prints the result.
//
// Options default to the TAC_* environment variables read by
// threeaddr.OptionsFromEnv and can be overridden by flags.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"text/template"

	"github.com/pkg/errors"
	tacfmt "github.com/gx-org/tac/base/fmt"
	"github.com/gx-org/tac/base/tmpl"
	"github.com/gx-org/tac/build/fmterr"
	"github.com/gx-org/tac/build/ir"
	"github.com/gx-org/tac/build/passes/threeaddr"
	"github.com/gx-org/tac/tools/tacflag"
)

var (
	programs = tacflag.StringList("programs", "demo programs to lower (all if empty)")
	reuse    = flag.Bool("reuse_variable", false, "reuse the storage of dead temporaries")
	minSplit = flag.Int("minimum_split", -1, "number of instructions above which temporaries are reused (-1 to use the environment)")
	cross    = flag.Bool("cross_simplify", false, "share common sub-expressions across statements")
	verify   = flag.Bool("verify", false, "check the output of the pass")
	verbose  = flag.Bool("v", false, "log debug information on the standard error")
	numbered = flag.Bool("n", false, "number the lines of the lowered programs")
)

type tempLine struct {
	Out    string
	Tensor *ir.Tensor
}

var tempTmpl = template.Must(template.New("temp").Parse("-- {{.Out}}: {{.Tensor.Name}} {{.Tensor.DType.DType}}{{.Tensor.Shape}}\n"))

func exit(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintln(os.Stderr)
	os.Exit(1)
}

func options() threeaddr.Options {
	opts := threeaddr.OptionsFromEnv()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "reuse_variable":
			opts.ReuseVariable = *reuse
		case "cross_simplify":
			opts.CrossStatementSimplify = *cross
		case "verify":
			opts.Verify = *verify
		}
	})
	if *minSplit >= 0 {
		opts.MinimumSplit = *minSplit
	}
	if *verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return opts
}

// dump lowers the named demo programs and writes them to w.
func dump(w io.Writer, names []string, opts threeaddr.Options) error {
	if len(names) == 0 {
		names = slices.Sorted(maps.Keys(demos))
	}
	for _, name := range names {
		build, ok := demos[name]
		if !ok {
			return errors.Errorf("unknown program %q: available programs are %v", name, slices.Sorted(maps.Keys(demos)))
		}
		prog := build()
		res, err := threeaddr.Run(prog, opts)
		if err != nil {
			return fmterr.PrefixWith("cannot lower %s: ", name)(err)
		}
		var lines []tempLine
		for id, temps := range res.Temps.Iter() {
			out := res.Program.Arena.Tensor(id)
			for _, tmp := range temps {
				lines = append(lines, tempLine{Out: out.Name, Tensor: tmp})
			}
		}
		temps, err := tmpl.Iterate(lines, tempTmpl)
		if err != nil {
			return err
		}
		out := res.Program.String()
		if *numbered {
			out = tacfmt.Number(out)
		}
		fmt.Fprintf(w, "== %s\n-- input\n%s\n-- output\n%s\n%s", name, prog, out, temps)
	}
	return nil
}

func main() {
	flag.Parse()
	if err := dump(os.Stdout, *programs, options()); err != nil {
		exit("%+v", err)
	}
}
