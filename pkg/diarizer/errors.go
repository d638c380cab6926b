package diarizer

// AuthenticationError indicates the credential token was missing, invalid,
// or rejected by the model provider. Fatal for the current run.
type AuthenticationError struct {
	Detail string
}

func (e *AuthenticationError) Error() string {
	if e.Detail == "" {
		return "diarizer: authentication failed"
	}
	return "diarizer: authentication failed: " + e.Detail
}

// ModelUnavailableError indicates the backing diarization model could not
// be loaded by the service. Fatal for the current run.
type ModelUnavailableError struct {
	Detail string
}

func (e *ModelUnavailableError) Error() string {
	if e.Detail == "" {
		return "diarizer: model unavailable"
	}
	return "diarizer: model unavailable: " + e.Detail
}
