package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/venice-lang/venice/compiler"
	"github.com/venice-lang/venice/compiler/common"
)

func main() {
	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile source to assembly on stdout",
		Flags: []*cli.Flag{
			cli.NewFlag("debug", false, "dump intermediate forms"),
		},
		Action: compileAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "venice",
		Description: "venice is the venice language compiler",
		Flags: []*cli.Flag{
			cli.NewFlag("debug", false, "dump intermediate forms and keep build files"),
		},
		Action: buildAct,
		Args:   cli.Args{},
		Commands: []*cli.Command{
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func buildAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opt := &compiler.Options{Debug: c.Bool("debug")}

	for _, a := range c.Args {
		bin, err := compiler.BuildFile(ctx, a, opt)
		if err != nil {
			return buildErr(err, a)
		}

		fmt.Println(bin)
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opt := &compiler.Options{Debug: c.Bool("debug")}

	for _, a := range c.Args {
		asm, err := compiler.CompileFile(ctx, a, opt)
		if err != nil {
			return buildErr(err, a)
		}

		fmt.Printf("%s", asm)
	}

	return nil
}

// buildErr prints user diagnostics itself so they come out one per
// line; everything else propagates as a fatal error.
func buildErr(err error, name string) error {
	if diags, ok := err.(common.Errors); ok {
		for _, d := range diags {
			fmt.Fprintln(os.Stderr, d.Error())
		}

		os.Exit(1)
	}

	return errors.Wrap(err, "build %v", name)
}
