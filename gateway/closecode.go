package gateway

// Policy is what the supervisor may attempt after a session ends.
type Policy struct {
	Resume      bool
	MayIdentify bool
}

// Fatal reports that neither resume nor a fresh identify is allowed.
func (p Policy) Fatal() bool { return !p.Resume && !p.MayIdentify }

// ClosePolicy classifies a gateway close code. Unknown codes are fatal.
func ClosePolicy(code int) Policy {
	switch code {
	case 4008, 4009:
		// Rate limited / session expired: the session is still resumable.
		return Policy{Resume: true, MayIdentify: true}
	case 4006, 4007:
		// Invalid session / sequence error: identify fresh.
		return Policy{MayIdentify: true}
	case 4001, 4002, 4010, 4011, 4012, 4013, 4014, 4914, 4915:
		return Policy{}
	default:
		if code >= 4900 && code <= 4913 {
			// Internal server error: reconnect fresh.
			return Policy{MayIdentify: true}
		}
		return Policy{}
	}
}
