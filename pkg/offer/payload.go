package offer

import (
	"strings"

	"github.com/simplifyhr/offerflow/pkg/model"
)

// StepPayload is the typed input of one step. Each step has exactly one
// concrete payload type, so the fields a step accepts are closed.
type StepPayload interface {
	Step() Step
}

type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckPending CheckStatus = "pending"
)

func (s CheckStatus) Valid() bool {
	return s == CheckPassed || s == CheckFailed || s == CheckPending
}

type BackgroundCheckPayload struct {
	Status CheckStatus
	Result model.JSONB
	// RunCheck asks the engine to obtain Status and Result from the
	// background check provider instead of the caller.
	RunCheck bool
}

func (BackgroundCheckPayload) Step() Step { return StepBackgroundCheck }

type GenerateOfferPayload struct {
	Content string
	Details model.JSONB
}

func (GenerateOfferPayload) Step() Step { return StepGenerateOffer }

type HRDecision string

const (
	HRApproved HRDecision = "approved"
	HRRejected HRDecision = "rejected"
)

type HRApprovalPayload struct {
	Comments *string
	Decision HRDecision
}

func (HRApprovalPayload) Step() Step { return StepHRApproval }

type SendOfferPayload struct {
	OfferLetterURL string
}

func (SendOfferPayload) Step() Step { return StepSendToCandidate }

type TrackResponsePayload struct{}

func (TrackResponsePayload) Step() Step { return StepTrackResponse }

// DecodePayload builds the typed payload for step from a raw JSON object.
// Both snake_case and camelCase keys are accepted; keys that do not belong
// to the step are ignored and never reach step data.
func DecodePayload(step Step, raw map[string]any) (StepPayload, error) {
	f := fields(raw)
	switch step {
	case StepBackgroundCheck:
		return decodeBackgroundCheck(f)
	case StepGenerateOffer:
		return decodeGenerateOffer(f)
	case StepHRApproval:
		return decodeHRApproval(f)
	case StepSendToCandidate:
		return decodeSendOffer(f)
	case StepTrackResponse:
		return TrackResponsePayload{}, nil
	default:
		return nil, invalid("current_step", "is outside the offer workflow")
	}
}

func decodeBackgroundCheck(f fields) (StepPayload, error) {
	var p BackgroundCheckPayload

	run, err := f.boolean("run_background_check", "runBackgroundCheck")
	if err != nil {
		return nil, err
	}
	p.RunCheck = run

	status, present, err := f.str(KeyBackgroundCheckStatus, "backgroundCheckStatus")
	if err != nil {
		return nil, err
	}
	result, resultPresent, err := f.object(KeyBackgroundCheckResult, "backgroundCheckResult")
	if err != nil {
		return nil, err
	}

	if p.RunCheck {
		if present || resultPresent {
			return nil, invalid(KeyBackgroundCheckStatus, "cannot be supplied together with run_background_check")
		}
		return p, nil
	}

	p.Status = CheckStatus(strings.ToLower(strings.TrimSpace(status)))
	if !present || p.Status == "" {
		return nil, invalid(KeyBackgroundCheckStatus, "is required")
	}
	if !p.Status.Valid() {
		return nil, invalid(KeyBackgroundCheckStatus, "must be one of passed, failed, pending")
	}
	if !resultPresent {
		return nil, invalid(KeyBackgroundCheckResult, "is required")
	}
	p.Result = result
	return p, nil
}

func decodeGenerateOffer(f fields) (StepPayload, error) {
	content, _, err := f.str(KeyGeneratedOfferContent, "generatedOfferContent")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid(KeyGeneratedOfferContent, "must not be empty")
	}
	details, _, err := f.object(KeyOfferDetails, "offerDetails")
	if err != nil {
		return nil, err
	}
	return GenerateOfferPayload{Content: content, Details: details}, nil
}

func decodeHRApproval(f fields) (StepPayload, error) {
	var p HRApprovalPayload
	comments, present, err := f.str(KeyHRComments, "hrComments")
	if err != nil {
		return nil, err
	}
	if present {
		p.Comments = &comments
	}

	decision, present, err := f.str(KeyHRDecision, "hrDecision")
	if err != nil {
		return nil, err
	}
	p.Decision = HRApproved
	if present && strings.TrimSpace(decision) != "" {
		p.Decision = HRDecision(strings.ToLower(strings.TrimSpace(decision)))
	}
	if p.Decision != HRApproved && p.Decision != HRRejected {
		return nil, invalid(KeyHRDecision, "must be approved or rejected")
	}
	return p, nil
}

func decodeSendOffer(f fields) (StepPayload, error) {
	url, _, err := f.str(KeyOfferLetterURL, "offerLetterUrl")
	if err != nil {
		return nil, err
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, invalid(KeyOfferLetterURL, "must not be empty")
	}
	return SendOfferPayload{OfferLetterURL: url}, nil
}

type fields map[string]any

// lookup returns the first present, non-nil value among keys. The first
// key is the canonical name reported in errors.
func (f fields) lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := f[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (f fields) str(keys ...string) (string, bool, error) {
	v, ok := f.lookup(keys...)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, invalid(keys[0], "must be a string")
	}
	return s, true, nil
}

func (f fields) boolean(keys ...string) (bool, error) {
	v, ok := f.lookup(keys...)
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, invalid(keys[0], "must be a boolean")
	}
	return b, nil
}

func (f fields) object(keys ...string) (model.JSONB, bool, error) {
	v, ok := f.lookup(keys...)
	if !ok {
		return nil, false, nil
	}
	switch obj := v.(type) {
	case map[string]any:
		return model.JSONB(obj).Clone(), true, nil
	case model.JSONB:
		return obj.Clone(), true, nil
	default:
		return nil, true, invalid(keys[0], "must be an object")
	}
}
