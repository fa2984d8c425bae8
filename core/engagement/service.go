package engagement

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
	"github.com/trezcool/engagement/core/indicator"
)

var NowFunc = time.Now // mockable

const SortByTotal = "total"

type (
	ServiceDeps struct {
		DB         core.DB
		Repo       Repository
		Registry   *indicator.Registry
		Publisher  core.EventPublisher
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Service struct {
		db         core.DB
		repo       Repository
		registry   *indicator.Registry
		publisher  core.EventPublisher
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		db:         deps.DB,
		repo:       deps.Repo,
		registry:   deps.Registry,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
}

// LoadWeights returns the stored rows of courseID keyed by indicator. The map is empty when nothing is stored.
func (svc *Service) LoadWeights(ctx context.Context, courseID int64) (map[string]IndicatorWeight, error) {
	rows, err := svc.repo.QueryWeights(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "loading weights")
	}
	weights := make(map[string]IndicatorWeight, len(rows))
	for _, row := range rows {
		weights[row.Indicator] = row
	}
	return weights, nil
}

// SaveWeights upserts the 0-100 percentages of courseID as fractions.
// configData only overwrites the stored config data of the indicators it holds.
// Indicators absent from pcts keep their rows.
func (svc *Service) SaveWeights(ctx context.Context, courseID, actorID int64, pcts map[string]float64, configData map[string][]byte) error {
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.saveWeights(ctx, tx, courseID, pcts, configData)
	})
	if err != nil {
		return err
	}
	svc.settingsUpdated(ctx, courseID, actorID)
	return nil
}

func (svc *Service) saveWeights(ctx context.Context, tx core.DBExecutor, courseID int64, pcts map[string]float64, configData map[string][]byte) error {
	for _, name := range core.SortedKeys(pcts) {
		w := IndicatorWeight{
			CourseID:   courseID,
			Indicator:  name,
			Weight:     ToFraction(pcts[name]),
			ConfigData: configData[name],
		}
		if err := svc.repo.UpsertWeight(ctx, w, tx); err != nil {
			return errors.Wrapf(err, "saving %s weight", name)
		}
	}
	return nil
}

// LoadGenericSettings returns the stored generic settings of courseID keyed by name.
func (svc *Service) LoadGenericSettings(ctx context.Context, courseID int64) (map[string]string, error) {
	rows, err := svc.repo.QueryGenericSettings(ctx, courseID, GenericSettingNames)
	if err != nil {
		return nil, errors.Wrap(err, "loading generic settings")
	}
	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Name] = row.Value
	}
	return settings, nil
}

// SaveGenericSettings upserts values. Values are stored as given.
func (svc *Service) SaveGenericSettings(ctx context.Context, courseID, actorID int64, values map[string]string) error {
	if err := checkGenericSettingNames(values); err != nil {
		return err
	}
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		return svc.saveGenericSettings(ctx, tx, courseID, values)
	})
	if err != nil {
		return err
	}
	svc.settingsUpdated(ctx, courseID, actorID)
	return nil
}

func (svc *Service) saveGenericSettings(ctx context.Context, tx core.DBExecutor, courseID int64, values map[string]string) error {
	for _, name := range GenericSettingNames {
		val, ok := values[name]
		if !ok {
			continue
		}
		s := GenericSetting{CourseID: courseID, Name: name, Value: val}
		if err := svc.repo.UpsertGenericSetting(ctx, s, tx); err != nil {
			return errors.Wrapf(err, "saving %s setting", name)
		}
	}
	return nil
}

func checkGenericSettingNames(values map[string]string) error {
	var flds []core.FieldError
	for _, name := range core.SortedKeys(values) {
		if !IsGenericSetting(name) {
			flds = append(flds, core.FieldError{Field: name, Error: genericSettingText})
		}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// LoadEditForm returns the current settings of courseID ready for editing.
// Only registered indicators are part of the form; rows of unregistered indicators stay stored but are left out.
// When no registered indicator has a stored weight, Weights holds the default split across the registered indicators.
// Stored weights are shown as they are, even when they no longer sum to 100.
func (svc *Service) LoadEditForm(ctx context.Context, courseID int64) (EditForm, error) {
	form := EditForm{
		Weights: make(map[string]float64),
		Generic: make(map[string]string),
		Values:  make(indicator.FormValues),
	}

	rows, err := svc.LoadWeights(ctx, courseID)
	if err != nil {
		return EditForm{}, err
	}
	for name := range rows {
		if !svc.registry.Has(name) {
			delete(rows, name)
		}
	}
	if len(rows) > 0 {
		for _, name := range core.SortedKeys(rows) {
			row := rows[name]
			form.Weights[name] = row.Percentage()
			for fld, val := range svc.decodeConfig(row) {
				form.Values[fld] = val
			}
		}
	} else {
		form.Weights = DefaultPercentages(svc.registry.Names())
		form.Defaulted = true
	}

	if form.Generic, err = svc.LoadGenericSettings(ctx, courseID); err != nil {
		return EditForm{}, err
	}
	return form, nil
}

// decodeConfig returns the form values of row's config data.
// Undecodable config data is logged and skipped: it must not lock managers out of the form.
func (svc *Service) decodeConfig(row IndicatorWeight) indicator.FormValues {
	if len(row.ConfigData) == 0 {
		return nil
	}
	codec, ok := svc.registry.Codec(row.Indicator)
	if !ok {
		return nil
	}
	extra := map[string]interface{}{"course_id": row.CourseID, "indicator": row.Indicator}

	p, err := indicator.UnmarshalPayload(row.Indicator, row.ConfigData)
	if err != nil {
		svc.logger.Warn("skipping stored indicator config", err, extra)
		return nil
	}
	values, err := codec.DecodeConfigForEdit(p)
	if err != nil {
		svc.logger.Warn("skipping stored indicator config", err, extra)
		return nil
	}
	return values
}

// SubmitEditForm validates form and saves its weights, indicator configs and generic settings in one transaction.
// Registered indicators missing from form.Weights are saved with a 0 weight.
func (svc *Service) SubmitEditForm(ctx context.Context, courseID, actorID int64, form EditForm) error {
	if err := form.Validate(svc.validate); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	if err := checkGenericSettingNames(form.Generic); err != nil {
		return err
	}

	var unknown []core.FieldError
	for _, name := range core.SortedKeys(form.Weights) {
		if !svc.registry.Has(name) {
			unknown = append(unknown, core.FieldError{Field: "weighting_" + name, Error: "unknown indicator"})
		}
	}
	if unknown != nil {
		return core.NewValidationError(nil, unknown...)
	}

	names := svc.registry.Names()
	pcts := make(map[string]float64, len(names))
	configData := make(map[string][]byte, len(names))
	for _, name := range names {
		pcts[name] = form.Weights[name]

		codec, ok := svc.registry.Codec(name)
		if !ok {
			continue
		}
		blob, err := encodeConfig(name, codec, form.Values)
		if err != nil {
			return err
		}
		configData[name] = blob
	}

	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.saveGenericSettings(ctx, tx, courseID, form.Generic); err != nil {
			return err
		}
		return svc.saveWeights(ctx, tx, courseID, pcts, configData)
	})
	if err != nil {
		return err
	}
	svc.settingsUpdated(ctx, courseID, actorID)
	return nil
}

func encodeConfig(name string, codec indicator.Codec, values indicator.FormValues) ([]byte, error) {
	p, err := codec.EncodeConfigFromForm(values)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s config", name)
	}
	if p.Indicator != name {
		return nil, errors.Errorf("%s codec tagged its config %q", name, p.Indicator)
	}
	return p.Marshal()
}

// RankStudents ranks students of courseID by their weighted total, or by one indicator's raw value.
func (svc *Service) RankStudents(ctx context.Context, courseID, viewerID int64, students []StudentScores, sortBy string, dir Direction) ([]StudentScores, error) {
	if sortBy != "" && sortBy != SortByTotal && !svc.registry.Has(sortBy) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "sort", Error: "unknown indicator " + sortBy})
	}

	rows, err := svc.LoadWeights(ctx, courseID)
	if err != nil {
		return nil, err
	}
	weights := WeightsOf(rows)

	var ranked []StudentScores
	if sortBy == "" || sortBy == SortByTotal {
		ranked = Rank(students, weights, dir)
	} else {
		ranked = RankByIndicator(students, weights, sortBy, dir)
	}

	core.PublishOrLog(ctx, svc.publisher, svc.logger, core.TopicReportViewed, core.ReportViewed{
		CourseID: courseID,
		UserID:   viewerID,
		Page:     core.PageReport,
		Time:     NowFunc().UTC(),
	})
	return ranked, nil
}

func (svc *Service) settingsUpdated(ctx context.Context, courseID, actorID int64) {
	core.PublishOrLog(ctx, svc.publisher, svc.logger, core.TopicSettingsUpdated, core.SettingsUpdated{
		CourseID: courseID,
		UserID:   actorID,
		Time:     NowFunc().UTC(),
	})
}
