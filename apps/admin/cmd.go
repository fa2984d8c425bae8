package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/trezcool/engagement/core/engagement"
	"github.com/trezcool/engagement/core/indicator"
	"github.com/trezcool/engagement/core/mailer"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db            *sql.DB
	registry      *indicator.Registry
	engagementSvc *engagement.Service
	mailerSvc     *mailer.Service

	out        io.Writer
	jsonOutput bool // tables are printed for terminals, JSON otherwise
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate CMD [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  indicators - list the registered indicators")
	fmt.Fprintln(cli.out, "  weights -course ID - show a course's indicator weightings")
	fmt.Fprintln(cli.out, "  setweights -course ID -user ID NAME=PCT... - submit new weightings (percentages)")
	fmt.Fprintln(cli.out, "  settings -course ID - show a course's edit form")
	fmt.Fprintln(cli.out, "  setsettings -course ID -user ID NAME=VALUE... - save generic settings")
	fmt.Fprintln(cli.out, "  rank -course ID -user ID -scores FILE [-sort total|INDICATOR] [-dir desc|asc] - rank students")
	fmt.Fprintln(cli.out, "  mail -course ID -sender ID -to ID,ID... -subject S -body B [-replyto ID] - email students")
	fmt.Fprintln(cli.out, "  mailerlog -course ID -user ID [-message ID] [-recipient ID] - show sent messages")
	fmt.Fprintln(cli.out, "  savemessage -user ID -summary S -text T - save a message for reuse")
	fmt.Fprintln(cli.out, "  savedmessages -user ID - list a user's saved messages")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate CMD [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])
	case "indicators":
		return cli.indicators()
	case "weights":
		return cli.weights(ctx, args[2:])
	case "setweights":
		return cli.setWeights(ctx, args[2:])
	case "settings":
		return cli.settings(ctx, args[2:])
	case "setsettings":
		return cli.setSettings(ctx, args[2:])
	case "rank":
		return cli.rank(ctx, args[2:])
	case "mail":
		return cli.mail(ctx, args[2:])
	case "mailerlog":
		return cli.mailerLog(ctx, args[2:])
	case "savemessage":
		return cli.saveMessage(ctx, args[2:])
	case "savedmessages":
		return cli.savedMessages(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

// parseFlags parses args and checks that every required int flag is set.
func parseFlags(fs *flag.FlagSet, args []string, required ...*int64) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	for _, v := range required {
		if *v == 0 {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

// parsePairs parses NAME=VALUE arguments.
func parsePairs(args []string) (map[string]string, error) {
	pairs := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q, expected NAME=VALUE", arg)
		}
		pairs[name] = value
	}
	return pairs, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// print writes v as JSON, or header and rows as a table.
func (cli *commandLine) print(v interface{}, header []string, rows [][]string) error {
	if cli.jsonOutput {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
