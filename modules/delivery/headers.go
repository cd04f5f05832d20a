package delivery

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/net/http/httpguts"
)

// Version is the platform release reported in the outbound user-agent.
const Version = "1.17.0"

const userAgent = "Svix-Webhooks/" + Version

// buildHeaders assembles the header set for one outbound attempt: the
// platform trio (svix-* or webhook-* when whitelabeled), then the endpoint's
// configured headers, then the user-agent. Configured headers that fail
// name/value validation are skipped with a warning; they never abort the
// attempt. A configured header that reuses a platform name intentionally
// overwrites it.
func buildHeaders(
	timestamp int64,
	msgID string,
	signatures string,
	whitelabel bool,
	configured map[string]string,
	log *slog.Logger,
) http.Header {
	headers := make(http.Header)
	ts := strconv.FormatInt(timestamp, 10)
	if whitelabel {
		headers.Set("webhook-id", msgID)
		headers.Set("webhook-timestamp", ts)
		headers.Set("webhook-signature", signatures)
	} else {
		headers.Set("svix-id", msgID)
		headers.Set("svix-timestamp", ts)
		headers.Set("svix-signature", signatures)
	}

	for k, v := range configured {
		if !httpguts.ValidHeaderFieldName(k) || !httpguts.ValidHeaderFieldValue(v) {
			log.Warn("skipping invalid endpoint header",
				slog.String("header_name", k))
			continue
		}
		headers.Set(k, v)
	}

	headers.Set("user-agent", userAgent)
	return headers
}
