package xtream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/xtream2m3u/xtream2m3u/internal/apierr"
	"github.com/xtream2m3u/xtream2m3u/internal/httpclient"
)

// AuthInfo is the validated account identity plus the media server base URL
// derived from server_info, used to build every media URL in the playlist.
type AuthInfo struct {
	Username   string
	Password   string
	ServerBase string // http://{server_info.url}:{server_info.port}
}

// ValidateCredentials performs the bare player_api.php call (no action) and
// checks the contract: the response must contain user_info and server_info,
// and server_info must carry url and port.
func ValidateCredentials(ctx context.Context, client *http.Client, creds Credentials) (*AuthInfo, error) {
	if client == nil {
		client = httpclient.Default()
	}
	body, err := apiGet(ctx, client, apiURL(creds, ""))
	if err != nil {
		return nil, err
	}

	var auth struct {
		UserInfo *struct {
			Username string      `json:"username"`
			Password string      `json:"password"`
			Auth     interface{} `json:"auth"`
		} `json:"user_info"`
		ServerInfo *struct {
			URL  string      `json:"url"`
			Port interface{} `json:"port"`
		} `json:"server_info"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, apierr.Wrap(apierr.AuthMalformed, err, "server response is not a JSON object")
	}
	if auth.UserInfo == nil || auth.ServerInfo == nil {
		return nil, apierr.New(apierr.AuthMalformed, "server response missing required data (user_info or server_info)")
	}
	if intFrom(auth.UserInfo.Auth, 1) == 0 {
		return nil, apierr.New(apierr.InvalidCredentials, "upstream rejected username/password")
	}
	port := idStr(auth.ServerInfo.Port)
	if auth.ServerInfo.URL == "" || port == "" {
		return nil, apierr.New(apierr.AuthMalformed, "server_info missing url or port")
	}

	info := &AuthInfo{
		Username:   auth.UserInfo.Username,
		Password:   auth.UserInfo.Password,
		ServerBase: "http://" + auth.ServerInfo.URL + ":" + port,
	}
	if info.Username == "" {
		info.Username = creds.Username
	}
	if info.Password == "" {
		info.Password = creds.Password
	}
	return info, nil
}
