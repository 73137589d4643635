package auth

import "context"

type credentialContextKey struct{}

// ContextWithCredential attaches the verified credential to the context.
func ContextWithCredential(ctx context.Context, cred Credential) context.Context {
	if cred == nil {
		return ctx
	}
	return context.WithValue(ctx, credentialContextKey{}, cred)
}

// CredentialFromContext extracts the verified credential from the context.
func CredentialFromContext(ctx context.Context) (Credential, bool) {
	if ctx == nil {
		return nil, false
	}
	cred, ok := ctx.Value(credentialContextKey{}).(Credential)
	return cred, ok && cred != nil
}

// UserIDFromContext returns the user behind a JWT credential.
func UserIDFromContext(ctx context.Context) (string, bool) {
	cred, ok := CredentialFromContext(ctx)
	if !ok {
		return "", false
	}
	if jwtCred, ok := cred.(JWTCredential); ok {
		return jwtCred.Token.UserID, true
	}
	return "", false
}
