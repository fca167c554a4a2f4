package model

// SetAnswerRequest is the body of the set-answer endpoint.
type SetAnswerRequest struct {
	Answer Answer `json:"answer"`
}

// SubmitQuizRequest is the body of the submit endpoint.
type SubmitQuizRequest struct {
	ConfirmUnanswered bool `json:"confirm_unanswered"`
}
