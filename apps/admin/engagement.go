package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/engagement"
)

type indicatorRow struct {
	Name         string `json:"name"`
	Enabled      bool   `json:"enabled"`
	Configurable bool   `json:"configurable"`
}

func (cli *commandLine) indicators() error {
	enabled := make(map[string]bool)
	for _, name := range cli.registry.Enabled() {
		enabled[name] = true
	}

	var (
		out  []indicatorRow
		rows [][]string
	)
	for _, name := range cli.registry.Names() {
		_, configurable := cli.registry.Codec(name)
		ind := indicatorRow{Name: name, Enabled: enabled[name], Configurable: configurable}
		out = append(out, ind)
		rows = append(rows, []string{name, strconv.FormatBool(ind.Enabled), strconv.FormatBool(ind.Configurable)})
	}
	return cli.print(out, []string{"INDICATOR", "ENABLED", "CONFIGURABLE"}, rows)
}

func (cli *commandLine) weights(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("weights")
	courseID := fs.Int64("course", 0, "The course ID.")
	if err := parseFlags(fs, args, courseID); err != nil {
		return err
	}

	weights, err := cli.engagementSvc.LoadWeights(ctx, *courseID)
	if err != nil {
		return err
	}

	out := make([]engagement.IndicatorWeight, 0, len(weights))
	rows := make([][]string, 0, len(weights))
	for _, name := range core.SortedKeys(weights) {
		w := weights[name]
		out = append(out, w)
		rows = append(rows, []string{name, formatFloat(w.Percentage()), strconv.Itoa(len(w.ConfigData))})
	}
	return cli.print(out, []string{"INDICATOR", "WEIGHT (%)", "CONFIG BYTES"}, rows)
}

// setWeights submits the course edit form with the given percentages. Current generic settings and indicator values are kept.
func (cli *commandLine) setWeights(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("setweights")
	courseID := fs.Int64("course", 0, "The course ID.")
	userID := fs.Int64("user", 0, "The ID of the user making the change.")
	if err := parseFlags(fs, args, courseID, userID); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errHelp
	}

	pairs, err := parsePairs(fs.Args())
	if err != nil {
		return err
	}
	pcts := make(map[string]float64, len(pairs))
	for name, val := range pairs {
		pct, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid weighting %s=%q", name, val)
		}
		pcts[name] = pct
	}

	form, err := cli.engagementSvc.LoadEditForm(ctx, *courseID)
	if err != nil {
		return err
	}
	form.Weights = pcts
	if err := cli.engagementSvc.SubmitEditForm(ctx, *courseID, *userID, form); err != nil {
		return err
	}
	return cli.weights(ctx, []string{"-course", strconv.FormatInt(*courseID, 10)})
}

func (cli *commandLine) settings(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("settings")
	courseID := fs.Int64("course", 0, "The course ID.")
	if err := parseFlags(fs, args, courseID); err != nil {
		return err
	}

	form, err := cli.engagementSvc.LoadEditForm(ctx, *courseID)
	if err != nil {
		return err
	}

	flat := form.Flatten()
	rows := make([][]string, 0, len(flat))
	for _, name := range core.SortedKeys(flat) {
		rows = append(rows, []string{name, flat[name]})
	}
	return cli.print(form, []string{"FIELD", "VALUE"}, rows)
}

func (cli *commandLine) setSettings(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("setsettings")
	courseID := fs.Int64("course", 0, "The course ID.")
	userID := fs.Int64("user", 0, "The ID of the user making the change.")
	if err := parseFlags(fs, args, courseID, userID); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errHelp
	}

	values, err := parsePairs(fs.Args())
	if err != nil {
		return err
	}
	if err := cli.engagementSvc.SaveGenericSettings(ctx, *courseID, *userID, values); err != nil {
		return err
	}
	return cli.settings(ctx, []string{"-course", strconv.FormatInt(*courseID, 10)})
}

// rank ranks the students of a JSON scores file: [{"student_id": 1, "raw": {"login": 3}}, ...]
func (cli *commandLine) rank(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("rank")
	courseID := fs.Int64("course", 0, "The course ID.")
	userID := fs.Int64("user", 0, "The ID of the user viewing the report.")
	scoresFile := fs.String("scores", "", "JSON file of the students' raw indicator scores.")
	sortBy := fs.String("sort", engagement.SortByTotal, "Sort by total or by an indicator.")
	dirFlag := fs.String("dir", "desc", "Sort direction: desc or asc.")
	if err := parseFlags(fs, args, courseID, userID); err != nil {
		return err
	}
	if *scoresFile == "" {
		fs.Usage()
		return errHelp
	}

	dir, err := engagement.ParseDirection(*dirFlag)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*scoresFile)
	if err != nil {
		return err
	}
	var students []engagement.StudentScores
	if err := json.Unmarshal(data, &students); err != nil {
		return fmt.Errorf("decoding %s: %w", *scoresFile, err)
	}

	ranked, err := cli.engagementSvc.RankStudents(ctx, *courseID, *userID, students, *sortBy, dir)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(ranked))
	for i, s := range ranked {
		rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatInt(s.StudentID, 10), formatFloat(s.Total)})
	}
	return cli.print(ranked, []string{"RANK", "STUDENT", "TOTAL"}, rows)
}
