package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
)

const (
	SubjectIngestFile = "ingest_file"
	SubjectIngestText = "ingest_text"
	SubjectIngestURL  = "ingest_url"
	SubjectChat       = "chat"
	SubjectStats      = "stats"
	SubjectClear      = "clear"
)

func AddEndpoints(group micro.Group, endpoints ragblade.EndpointSet, timeouts ragblade.Timeouts) {
	group.AddEndpoint(SubjectIngestFile, IngestFileHandler(endpoints.IngestFile, timeouts.Upload))
	group.AddEndpoint(SubjectIngestText, IngestTextHandler(endpoints.IngestText, timeouts.Text))
	group.AddEndpoint(SubjectIngestURL, IngestURLHandler(endpoints.IngestURL, timeouts.Scrape))
	group.AddEndpoint(SubjectChat, ChatHandler(endpoints.Chat, timeouts.Chat))
	group.AddEndpoint(SubjectStats, StatsHandler(endpoints.Stats, timeouts.Store))
	group.AddEndpoint(SubjectClear, ClearHandler(endpoints.Clear, timeouts.Store))
}
