// Package airwork implements the marketplace-facing formats and rules of
// the airwork channel: validation of run item content, export file
// rendering, and parsing of the marketplace's export/result files.
package airwork

import (
	"fmt"
	"sort"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// nearLimitRatio is the fraction of a hard length cap at which a warning
// is raised.
const nearLimitRatio = 0.9

var (
	titleWarnLen       = int(float64(model.TitleMaxLen) * nearLimitRatio)
	subtitleWarnLen    = int(float64(model.SubtitleMaxLen) * nearLimitRatio)
	descriptionWarnLen = int(float64(model.DescriptionMaxLen) * nearLimitRatio)
)

// Issue codes emitted by ValidateItem.
const (
	CodeRequiredJobOfferID     = "required_job_offer_id"
	CodeRequiredTitle          = "required_title"
	CodeLengthTitle            = "length_title"
	CodeNearLimitTitle         = "near_limit_title"
	CodeRequiredDescription    = "required_description"
	CodeLengthDescription      = "length_description"
	CodeNearLimitDescription   = "near_limit_description"
	CodeLengthSubtitle         = "length_subtitle"
	CodeNearLimitSubtitle      = "near_limit_subtitle"
	CodeInvalidWorkingLocation = "invalid_working_location"
	CodeInvalidJobType         = "invalid_job_type"
	CodeMissingSubtitle        = "missing_subtitle"
	CodeMissingWorkingLocation = "missing_working_location"
	CodeMissingJobType         = "missing_job_type"
	CodeUnknownFieldKey        = "unknown_field_key"
)

// ValidateItem evaluates one run item's snapshot content against the
// reference masters. It is a pure function: hard errors block file
// generation, warnings are advisory. Imported marketplace errors are a
// separate bucket owned by result ingestion and are never touched here.
func ValidateItem(item *model.RunItemDetail, masters *model.Masters) model.RunItemValidation {
	var hard, warns []model.ValidationIssue

	title := item.PayloadValue(model.PayloadKeyTitle)
	subtitle := item.PayloadValue(model.PayloadKeySubtitle)
	description := item.PayloadValue(model.PayloadKeyDescription)
	workingLocationID := item.PayloadValue(model.PayloadKeyWorkingLocationID)
	jobType := item.PayloadValue(model.PayloadKeyJobType)

	if item.Action == model.RunItemActionUpdate && item.EffectiveJobOfferID() == "" {
		hard = append(hard, model.ValidationIssue{
			Code:     CodeRequiredJobOfferID,
			Message:  "job_offer_id is not set",
			FieldKey: model.PayloadKeyJobOfferID,
		})
	}

	hard, warns = checkLength(hard, warns, lengthCheck{
		value: title, fieldKey: model.PayloadKeyTitle, required: true,
		max: model.TitleMaxLen, warnAt: titleWarnLen,
		requiredCode: CodeRequiredTitle, lengthCode: CodeLengthTitle, nearCode: CodeNearLimitTitle,
	})
	hard, warns = checkLength(hard, warns, lengthCheck{
		value: description, fieldKey: model.PayloadKeyDescription, required: true,
		max: model.DescriptionMaxLen, warnAt: descriptionWarnLen,
		requiredCode: CodeRequiredDescription, lengthCode: CodeLengthDescription, nearCode: CodeNearLimitDescription,
	})
	hard, warns = checkLength(hard, warns, lengthCheck{
		value: subtitle, fieldKey: model.PayloadKeySubtitle, required: false,
		max: model.SubtitleMaxLen, warnAt: subtitleWarnLen,
		lengthCode: CodeLengthSubtitle, nearCode: CodeNearLimitSubtitle,
	})

	if workingLocationID != "" && !masters.HasLocation(workingLocationID) {
		hard = append(hard, model.ValidationIssue{
			Code:     CodeInvalidWorkingLocation,
			Message:  "working_location_id is not in the client's location master",
			FieldKey: model.PayloadKeyWorkingLocationID,
		})
	}

	// An empty code master means no constraint is configured.
	if jobType != "" && masters.HasJobTypeMaster() && !masters.HasJobTypeCode(jobType) {
		hard = append(hard, model.ValidationIssue{
			Code:     CodeInvalidJobType,
			Message:  "job_type is not in the active code master",
			FieldKey: model.PayloadKeyJobType,
		})
	}

	if subtitle == "" {
		warns = append(warns, missingIssue(CodeMissingSubtitle, model.PayloadKeySubtitle))
	}
	if workingLocationID == "" {
		warns = append(warns, missingIssue(CodeMissingWorkingLocation, model.PayloadKeyWorkingLocationID))
	}
	if jobType == "" {
		warns = append(warns, missingIssue(CodeMissingJobType, model.PayloadKeyJobType))
	}

	if masters.HasFieldKeyMaster() && len(item.Payload) > 0 {
		keys := make([]string, 0, len(item.Payload))
		for key := range item.Payload {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if !masters.HasFieldKey(key) {
				warns = append(warns, model.ValidationIssue{
					Code:     CodeUnknownFieldKey,
					Message:  fmt.Sprintf("payload contains an unknown field: %s", key),
					FieldKey: key,
				})
			}
		}
	}

	return model.RunItemValidation{HardErrors: hard, Warnings: warns}
}

type lengthCheck struct {
	value        string
	fieldKey     string
	required     bool
	max          int
	warnAt       int
	requiredCode string
	lengthCode   string
	nearCode     string
}

func checkLength(
	hard, warns []model.ValidationIssue,
	c lengthCheck,
) ([]model.ValidationIssue, []model.ValidationIssue) {
	if c.value == "" {
		if c.required {
			hard = append(hard, model.ValidationIssue{
				Code:     c.requiredCode,
				Message:  fmt.Sprintf("%s is not set", c.fieldKey),
				FieldKey: c.fieldKey,
			})
		}
		return hard, warns
	}

	length := len([]rune(c.value))
	switch {
	case length > c.max:
		hard = append(hard, model.ValidationIssue{
			Code:     c.lengthCode,
			Message:  fmt.Sprintf("%s must be at most %d characters", c.fieldKey, c.max),
			FieldKey: c.fieldKey,
		})
	case length >= c.warnAt:
		warns = append(warns, model.ValidationIssue{
			Code:     c.nearCode,
			Message:  fmt.Sprintf("%s is close to the %d character limit", c.fieldKey, c.max),
			FieldKey: c.fieldKey,
			Detail:   fmt.Sprintf("%d/%d", length, c.max),
		})
	}
	return hard, warns
}

func missingIssue(code, fieldKey string) model.ValidationIssue {
	return model.ValidationIssue{
		Code:     code,
		Message:  fmt.Sprintf("%s is not filled in", fieldKey),
		FieldKey: fieldKey,
	}
}
