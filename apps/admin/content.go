package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core/content"
)

// render compiles the book at src into the index at out.
// With check, nothing is written: the changes are printed and errIndexStale is returned if there are any.
func (cli *commandLine) render(src, out, provider string, check bool) error {
	book, err := content.LoadBookFile(src)
	if err != nil {
		return err
	}
	compiler := content.Compiler{Provider: provider, Validate: cli.validate}
	idx, err := compiler.Compile(book)
	if err != nil {
		return errors.Wrapf(err, "compiling %s", src)
	}

	if !check {
		if err = idx.WriteFile(out); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "wrote %d items to %s\n", len(idx.Flatten()), out)
		return nil
	}

	want, err := idx.Marshal()
	if err != nil {
		return err
	}
	got, err := os.ReadFile(out)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "reading index")
	}
	diff, err := content.Diff(got, want, out, src)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintf(cli.out, "%s is up to date\n", out)
		return nil
	}
	fmt.Fprint(cli.out, diff)
	return errIndexStale
}

func (cli *commandLine) importIndex(path string) error {
	idx, err := content.ReadIndexFile(path)
	if err != nil {
		return err
	}
	items := idx.Flatten()
	if err = cli.svc.SaveItems(context.Background(), items...); err != nil {
		return errors.Wrap(err, "saving items")
	}
	fmt.Fprintf(cli.out, "imported %d items from %s\n", len(items), path)
	return nil
}
