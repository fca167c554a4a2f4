package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz session ──────────────────────────────────────────────────
	ErrQuizUnavailable      ErrCode = "QUIZ_UNAVAILABLE"
	ErrSessionNotStarted    ErrCode = "SESSION_NOT_STARTED"
	ErrUnknownQuestion      ErrCode = "UNKNOWN_QUESTION"
	ErrUnansweredQuestions  ErrCode = "UNANSWERED_QUESTIONS"
	ErrSubmissionInProgress ErrCode = "SUBMISSION_IN_PROGRESS"
	ErrAlreadySubmitted     ErrCode = "ALREADY_SUBMITTED"
	ErrSubmissionFailed     ErrCode = "SUBMISSION_FAILED"

	// ─── Authoring ─────────────────────────────────────────────────────
	ErrFileRequired       ErrCode = "FILE_REQUIRED"
	ErrFileTooLarge       ErrCode = "FILE_TOO_LARGE"
	ErrNothingExtracted   ErrCode = "NO_QUESTIONS_EXTRACTED"
	ErrDraftNotFound      ErrCode = "DRAFT_NOT_FOUND"
	ErrInvalidPublishMode ErrCode = "INVALID_PUBLISH_MODE"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"
	ErrStoreUnavailable   ErrCode = "STORE_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is limited to students."
	case ErrTeacherAccessOnly:
		return "This resource is limited to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Quiz session ──────────────────────────────────────────────────
	case ErrQuizUnavailable:
		return "This quiz cannot be taken: it has no time limit or no questions."
	case ErrSessionNotStarted:
		return "Open the quiz before answering."
	case ErrUnknownQuestion:
		return "The question does not belong to this quiz."
	case ErrUnansweredQuestions:
		return "Some questions are unanswered. Confirm to submit anyway."
	case ErrSubmissionInProgress:
		return "The quiz is being submitted."
	case ErrAlreadySubmitted:
		return "The quiz has already been submitted."
	case ErrSubmissionFailed:
		return "Submitting the quiz failed. Your answers are kept; please try again."

	// ─── Authoring ─────────────────────────────────────────────────────
	case ErrFileRequired:
		return "At least one file upload is required."
	case ErrFileTooLarge:
		return "File size exceeds the limit."
	case ErrNothingExtracted:
		return "No questions could be extracted from the uploaded files."
	case ErrDraftNotFound:
		return "No quiz draft is saved."
	case ErrInvalidPublishMode:
		return "Publish mode must be create, edit or approve."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrBackendUnavailable:
		return "The quiz service is unavailable. Please try again."
	case ErrStoreUnavailable:
		return "Saved progress could not be read. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
