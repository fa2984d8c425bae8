package engagement

import (
	"context"

	"github.com/trezcool/engagement/core"
)

// Generic settings
const (
	SettingQuerySpecifyDatetime = "queryspecifydatetime"
	SettingQueryStartDatetime   = "querystartdatetime"
	SettingQueryEndDatetime     = "queryenddatetime"
)

// GenericSettingNames is the fixed set of course-level settings, in form order.
var GenericSettingNames = []string{SettingQuerySpecifyDatetime, SettingQueryStartDatetime, SettingQueryEndDatetime}

func IsGenericSetting(name string) bool {
	for _, n := range GenericSettingNames {
		if n == name {
			return true
		}
	}
	return false
}

// IndicatorWeight is the stored weight and configuration of one indicator in one course.
// ConfigData is owned by the indicator; the store persists and returns it unchanged.
type IndicatorWeight struct {
	CourseID   int64   `json:"course_id"`
	Indicator  string  `json:"indicator"`
	Weight     float64 `json:"weight"` // fraction in [0,1]
	ConfigData []byte  `json:"config_data,omitempty"`
}

func (w IndicatorWeight) Percentage() float64 {
	return ToPercentage(w.Weight)
}

type GenericSetting struct {
	CourseID int64  `json:"course_id" db:"course_id"`
	Name     string `json:"name" db:"name"`
	Value    string `json:"value" db:"value"`
}

type Repository interface {
	QueryWeights(ctx context.Context, courseID int64, exec ...core.DBExecutor) ([]IndicatorWeight, error)
	// UpsertWeight inserts w or updates the existing (CourseID, Indicator) row.
	// A nil ConfigData leaves the stored config data untouched.
	UpsertWeight(ctx context.Context, w IndicatorWeight, exec ...core.DBExecutor) error
	QueryGenericSettings(ctx context.Context, courseID int64, names []string, exec ...core.DBExecutor) ([]GenericSetting, error)
	// UpsertGenericSetting inserts s or updates the existing (CourseID, Name) row.
	UpsertGenericSetting(ctx context.Context, s GenericSetting, exec ...core.DBExecutor) error
}
