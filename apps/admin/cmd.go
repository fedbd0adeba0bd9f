package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

var (
	errHelp       = errors.New("help provided")
	errIndexStale = errors.New("index is out of date")
)

type commandLine struct {
	conf     *core.Config
	out      io.Writer
	validate *validator.Validate
	db       *sql.DB
	svc      assessment.Service
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  render -src BOOK [-out INDEX] [-provider NAME] [-check] - compile a book into an assessment index")
	fmt.Fprintln(cli.out, "  import [-index INDEX] - save the items of an assessment index")
	fmt.Fprintln(cli.out, "  token -sub ID [-username NAME] [-email EMAIL] [-role ROLE]... - issue an API token")
}

// needsDB tells if the command in args talks to the database.
func needsDB(args []string) bool {
	return len(args) > 1 && (args[1] == "migrate" || args[1] == "import")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	renderCmd := flag.NewFlagSet("render", flag.ContinueOnError)
	renderCmd.SetOutput(cli.out)
	renderSrc := renderCmd.String("src", "", "The book source file (YAML).")
	renderOut := renderCmd.String("out", cli.conf.Content.IndexFilename, "The index file to write.")
	renderProvider := renderCmd.String("provider", cli.conf.Content.Provider, "The NTIID provider of books that do not set one.")
	renderCheck := renderCmd.Bool("check", false, "Print the changes instead of writing the index; fail if there are any.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importIndex := importCmd.String("index", cli.conf.Content.IndexFilename, "The index file to import.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenSub := tokenCmd.String("sub", "", "The user's ID.")
	tokenUsername := tokenCmd.String("username", "", "The user's username.")
	tokenEmail := tokenCmd.String("email", "", "The user's email; grade reports are sent to it.")
	var tokenRoles stringList
	tokenCmd.Var(&tokenRoles, "role", "A role of the user (repeatable): student, instructor or admin.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "render":
		if err := renderCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *renderSrc == "" {
			renderCmd.Usage()
			return errHelp
		}
		return cli.render(*renderSrc, *renderOut, *renderProvider, *renderCheck)
	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.importIndex(*importIndex)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" {
			tokenCmd.Usage()
			return errHelp
		}
		person := core.Person{ID: *tokenSub, Username: *tokenUsername, Email: *tokenEmail}
		return cli.token(person, tokenRoles)
	default:
		cli.printUsage()
		return errHelp
	}
}
