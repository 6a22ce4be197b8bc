package common

// AuthorizationHeaderName carries the bearer token identifying the requester.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header.
const BearerPrefix = "Bearer "
