package resource

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bissquit/slack-courier/internal/delivery"
)

// Version identifies the produced resource version by message timestamp.
type Version struct {
	Timestamp string `json:"timestamp"`
}

// MetadataField is one name/value pair shown alongside the version.
type MetadataField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Response is the payload written to stdout.
type Response struct {
	Version  Version         `json:"version"`
	Metadata []MetadataField `json:"metadata"`
}

// BuildResponse assembles the out-step response. Metadata is dropped
// entirely when the source sets suppress_metadata and the raw params are
// attached when it sets payload_in_metadata; debug mode forces metadata
// on and the payload in, regardless of the source flags.
func BuildResponse(req *Request, result *delivery.DeliveryResult, outcomes []delivery.Outcome) *Response {
	resp := &Response{Version: Version{Timestamp: result.Timestamp}}
	if resp.Version.Timestamp == "" {
		resp.Version.Timestamp = fmt.Sprintf("%d.000000", time.Now().Unix())
	}

	debug := req.Params.Debug
	if req.Source.SuppressMetadata && !debug {
		return resp
	}

	resp.Metadata = append(resp.Metadata,
		MetadataField{Name: "channel", Value: result.ChannelID},
		MetadataField{Name: "ts", Value: result.Timestamp},
	)
	if result.Permalink != "" {
		resp.Metadata = append(resp.Metadata, MetadataField{Name: "permalink", Value: result.Permalink})
	}
	if req.Params.DryRun {
		resp.Metadata = append(resp.Metadata, MetadataField{Name: "dry_run", Value: "true"})
	}

	for _, outcome := range outcomes {
		value := "sent " + outcome.Timestamp
		if outcome.Err != nil {
			value = "failed: " + outcome.Err.Error()
		}
		resp.Metadata = append(resp.Metadata, MetadataField{
			Name:  "crosspost:" + outcome.Channel,
			Value: value,
		})
	}

	if req.Source.PayloadInMetadata || debug {
		if payload, err := json.Marshal(req.Params); err == nil {
			resp.Metadata = append(resp.Metadata, MetadataField{Name: "payload", Value: string(payload)})
		}
	}

	return resp
}
