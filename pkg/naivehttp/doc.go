// Package naivehttp is a thin GET/POST layer over an injected asynchronous
// transport. It builds the request, hands it to the transport, classifies
// the single result and invokes exactly one caller handler.
//
// Statuses of 400 and above are failures. Transport errors are passed
// through untouched inside a ClassifiedError of KindTransport; failures
// synthesized here carry ErrorDomain.
//
// GET merges query params into the URI. POST takes the URI as given and has
// no params argument.
package naivehttp
