package naivehttp

// FailureThreshold is the lowest HTTP status classified as a failure.
// 400 Bad Request is itself a failure.
const FailureThreshold = 400

// Outcome is the classified result of one exchange. Err == nil means
// success and Body is then non-nil; otherwise Body and Meta hold whatever
// raw data the transport still delivered.
type Outcome struct {
	Body []byte
	Meta *Metadata
	Err  *ClassifiedError
}

// Succeeded reports whether the outcome is the success branch.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Classify turns a transport result into exactly one Outcome.
//
// A transport that reports no error and no body but does supply metadata
// breaks its contract; Classify treats that as a success with an empty
// body. Missing metadata without an error is a KindIncompleteResponse
// failure.
func Classify(body []byte, meta *Metadata, err error) Outcome {
	if err != nil {
		return Outcome{Body: body, Meta: meta, Err: newTransportError(err)}
	}
	if meta == nil {
		return Outcome{Body: body, Err: newIncompleteResponseError()}
	}
	if meta.StatusCode >= FailureThreshold {
		return Outcome{Body: body, Meta: meta, Err: newStatusError(meta.StatusCode)}
	}
	if body == nil {
		body = []byte{}
	}
	return Outcome{Body: body, Meta: meta}
}
