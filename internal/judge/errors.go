package judge

import "errors"

// Pipeline failure kinds. Every one of these short-circuits an evaluation
// into a terminal error-status submission; none of them may surface as an
// unhandled fault to the caller.
var (
	ErrCredentialMissing  = errors.New("credential missing: user has no usable GitHub access token")
	ErrProvisionFailed    = errors.New("provision failed: could not create workspace repository")
	ErrFileNotFound       = errors.New("file not found: solution file has not been pushed to the workspace")
	ErrFetchTimeout       = errors.New("fetch timeout: workspace host unreachable within the allowed window")
	ErrEvaluationTimeout  = errors.New("evaluation timeout: submitted code exceeded the execution window")
	ErrGradingUnavailable = errors.New("grading service unavailable")
	ErrStoreWrite         = errors.New("store write failed")
)

// FailureKind maps a pipeline error to the short kind name recorded in the
// submission feedback.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrCredentialMissing):
		return "CredentialMissing"
	case errors.Is(err, ErrProvisionFailed):
		return "ProvisionFailed"
	case errors.Is(err, ErrFileNotFound):
		return "FileNotFound"
	case errors.Is(err, ErrFetchTimeout):
		return "FetchTimeout"
	case errors.Is(err, ErrEvaluationTimeout):
		return "EvaluationTimeout"
	case errors.Is(err, ErrGradingUnavailable):
		return "GradingServiceUnavailable"
	case errors.Is(err, ErrStoreWrite):
		return "StoreWriteFailed"
	default:
		return "Internal"
	}
}
