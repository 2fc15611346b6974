package common

// AuthorizationHeaderName is the HTTP header carrying the bearer access
// token on outbound requests to the identity backend.
const AuthorizationHeaderName = "Authorization"

// Metadata keys for client-side persisted state. The metadata repository is
// a plain key/value table; these are the only keys the auth subsystem owns.
const (
	MetaKeyOfflineMode    = "offline_mode_flag"
	MetaKeyOfflineSession = "offline_current_session"
	MetaKeyAccessToken    = "remote_access_token"
	MetaKeyRefreshToken   = "remote_refresh_token"
)
