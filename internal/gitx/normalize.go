package gitx

import (
	"net/url"
	"sort"
	"strings"

	"github.com/skaphos/gitfleet/internal/model"
)

// DetectProtocol infers the transport of a remote URL from its shape.
func DetectProtocol(rawURL string) model.RemoteProtocol {
	u := strings.TrimSpace(rawURL)
	switch {
	case u == "":
		return model.ProtocolUnknown
	case strings.HasPrefix(u, "https://"):
		return model.ProtocolHTTPS
	case strings.HasPrefix(u, "http://"):
		return model.ProtocolHTTP
	case strings.HasPrefix(u, "git://"):
		return model.ProtocolGit
	case strings.HasPrefix(u, "file://"), strings.HasPrefix(u, "/"):
		return model.ProtocolFile
	case strings.HasPrefix(u, "ssh://"), strings.Contains(u, "@"):
		return model.ProtocolSSH
	default:
		return model.ProtocolUnknown
	}
}

// NormalizeURL reduces a remote URL to "host/path" so the same repository
// reached over different transports compares equal.
//
//	git@github.com:Org/Repo.git     → github.com/Org/Repo
//	https://github.com/Org/Repo.git → github.com/Org/Repo
//	/srv/git/repo.git               → /srv/git/repo
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	var host, path string
	if i := strings.Index(rawURL, "@"); i >= 0 && !strings.Contains(rawURL[:i], "://") {
		// scp-like syntax: user@host:path
		rest := rawURL[i+1:]
		var found bool
		host, path, found = strings.Cut(rest, ":")
		if !found {
			host, path = "", rest
		}
	} else {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return rawURL
		}
		host = parsed.Hostname()
		path = parsed.Path
		if host != "" {
			path = strings.TrimPrefix(path, "/")
		}
	}

	host = strings.ToLower(host)
	path = strings.TrimRight(strings.TrimSuffix(strings.TrimRight(path, "/"), ".git"), "/")
	if host == "" {
		return path
	}
	return host + "/" + path
}

// PrimaryRemote selects the preferred remote from a list.
// Prefers "origin", falls back to first alphabetically.
func PrimaryRemote(remotes []model.Remote) (model.Remote, bool) {
	if len(remotes) == 0 {
		return model.Remote{}, false
	}
	sorted := append([]model.Remote(nil), remotes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, r := range sorted {
		if r.Name == "origin" {
			return r, true
		}
	}
	return sorted[0], true
}
