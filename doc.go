// Package datalake provides request signing for the data lake API.
//
// Every API call carries an Auth header holding a token derived from the
// caller's secret key. The secret itself never leaves the process: it seeds a
// chain of HMAC-SHA256 computations scoped to the current UTC date, the API
// endpoint host and the data lake service, and only the final digest is sent.
//
// # Key Components
//
//   - Credentials: access key, secret key and endpoint host, validated at construction
//   - Signer: derives the per-day, per-endpoint token
//   - TokenVerifier: the server-side re-derivation, used by test tooling
//
// The transport package sends signed requests, the upload package runs the
// three-step dataset upload and the client package wraps the resource API.
//
// # Example Usage
//
//	creds, err := datalake.NewCredentials(accessKey, secretKey, "api.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	signer, err := datalake.NewSigner(creds)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req.Header.Set(datalake.AuthHeader, datalake.AuthHeaderValue(signer.Token()))
package datalake
