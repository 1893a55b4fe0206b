// Package snap is the partner-side authentication core for a SNAP-style
// payment gateway. It owns the two things every integration depends on:
// constructing the byte-exact canonical request that gets RSA-signed so
// the gateway accepts a call, and managing the short-lived credential
// chain (authorization code → access token → one-time token) that
// gates user-consented operations.
//
// # Signed calls
//
// Load a [PartnerCredential] once at startup and build a [Client] around
// it. Every call canonicalizes the JSON body, signs the canonical
// string, and assembles the X-TIMESTAMP/X-SIGNATURE/X-PARTNER-ID header
// set. [HeaderFaults] deliberately omits or corrupts individual headers
// for negative-path testing; the zero value is production behavior.
//
// # Consent chains
//
// [ConsentManager] tracks one chain per user. The consent screen itself
// is external: implement [ConsentProvider] around whatever drives it and
// let the chain consume the resulting code. [GatewayExchanger] advances
// chains through the gateway's token APIs. Authorization codes and OTTs
// are single use; revocation invalidates the whole chain at once.
//
// # Idempotency and retries
//
// Business mutations are guarded by the partner reference number: an
// identical resubmission returns the recorded result, a conflicting one
// fails as inconsistent, and concurrent callers with the same key never
// execute the operation twice. [Policy] bounds retries to transient
// outcomes only.
package snap
