// Package channel provides the delivery channel implementations used by
// the dispatcher: a durable sqlite-backed in-app inbox, and HTTP senders
// for email, team chat, and the messaging-app gateway.
//
// The HTTP senders share one provider client that handles request pacing,
// bounded timeouts, and failure classification. Provider 5xx responses,
// rate limiting, and network errors surface as transient delivery errors
// eligible for retry; 4xx rejections are permanent.
package channel
