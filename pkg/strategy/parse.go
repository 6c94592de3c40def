package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mondrian-project/mondrian/pkg/modelclient"
	"github.com/mondrian-project/mondrian/pkg/models"
)

// parsedPayload is the eight-dimension score/comment schema the model is
// expected to return (spec.md §3 DimensionalProfile + §4.C Result).
type parsedPayload struct {
	Scores       models.ScoreVector
	Comments     [models.NumDimensions]string
	OverallGrade float64
	Caption      string
}

// errParseFailed marks a response that didn't match the expected schema.
var errParseFailed = fmt.Errorf("model response did not match the expected score schema")

// callAndParse invokes call, parses the JSON response, and retries once
// with the same prompt on a parse failure (spec.md §4.C failure
// semantics: "Parse failures of the model response are retried once with
// the same prompt; a second failure produces a job error with kind
// parse_error").
func callAndParse(ctx context.Context, call modelclient.ModelCallable, req modelclient.CallRequest, think func(string)) (*parsedPayload, error) {
	resp, err := call(ctx, req, think)
	if err != nil {
		return nil, classifyCallError(err)
	}
	payload, err := parseResponse(resp)
	if err == nil {
		return payload, nil
	}

	resp, err = call(ctx, req, think)
	if err != nil {
		return nil, classifyCallError(err)
	}
	payload, err = parseResponse(resp)
	if err != nil {
		return nil, models.NewJobError(models.ErrorKindParseError, err.Error())
	}
	return payload, nil
}

// classifyCallError maps a model callable transport error onto the error
// taxonomy (spec.md §7): a deadline/cancellation is model_timeout,
// anything else is internal.
func classifyCallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewJobError(models.ErrorKindModelTimeout, err.Error())
	}
	return models.NewJobError(models.ErrorKindInternal, err.Error())
}

func parseResponse(resp *modelclient.CallResponse) (*parsedPayload, error) {
	if resp == nil || resp.JSON == nil {
		return nil, errParseFailed
	}

	rawScores, ok := resp.JSON["scores"].(map[string]any)
	if !ok {
		return nil, errParseFailed
	}
	rawComments, _ := resp.JSON["comments"].(map[string]any)

	var payload parsedPayload
	for d := 0; d < models.NumDimensions; d++ {
		name := models.DimensionNames[d]
		v, ok := rawScores[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing score for %q", errParseFailed, name)
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric score for %q", errParseFailed, name)
		}
		payload.Scores.Set(models.Dimension(d), f)

		if c, ok := rawComments[name].(string); ok {
			payload.Comments[d] = c
		}
	}

	if grade, ok := toFloat(resp.JSON["overall_grade"]); ok {
		payload.OverallGrade = grade
	}
	if caption, ok := resp.JSON["caption"].(string); ok {
		payload.Caption = caption
	}

	return &payload, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// modelCallTimeout is the per-call budget for model callable invocations;
// nothing in the module references it, so it does not bound any call. The
// supervisor's job-timeout reaper is the wall-clock backstop (spec.md §5
// "Suspension points").
const modelCallTimeout = 120 * time.Second
