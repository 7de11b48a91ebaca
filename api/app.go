package api

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// GetAccessTokenRequest is the credential body POSTed to /app/access_token.
type GetAccessTokenRequest struct {
	AppID        string `json:"appId"`
	ClientSecret string `json:"clientSecret"`
}

// GetAccessTokenResponse carries the fresh token and its lifetime.
type GetAccessTokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   Seconds `json:"expires_in"`
}

// Seconds is a duration in whole seconds. The platform encodes it sometimes
// as a number and sometimes as a number-in-a-string, so both decode.
type Seconds int64

// UnmarshalJSON accepts both 7200 and "7200".
func (s *Seconds) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return err
		}
		*s = Seconds(v)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}
