// Package stream provides DynamoDB Streams handlers that keep search token
// maps in step with document writes.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/docket/store"
)

// Stream event names.
const (
	eventInsert = "INSERT"
	eventModify = "MODIFY"
)

// Handler processes DynamoDB stream events for token map reindexing.
type Handler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHandler creates a new stream handler. The store's registry decides
// which collections are reindexed.
func NewHandler(s *store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		logger: logger,
	}
}

// HandleReindex processes DynamoDB stream events, recomputing the token map
// of every inserted or modified document whose search fields may have
// changed. The first failure aborts the batch so Lambda retries it.
func (h *Handler) HandleReindex(ctx context.Context, event events.DynamoDBEvent) error {
	for i := range event.Records {
		record := &event.Records[i]
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
	}
	return nil
}

// HandleReindexBatch is HandleReindex reporting partial batch failures, for
// event source mappings with ReportBatchItemFailures enabled. Records after
// the first failure are reported too, so the shard keeps its order.
func (h *Handler) HandleReindexBatch(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var resp events.DynamoDBEventResponse
	for i := range event.Records {
		record := &event.Records[i]
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"sequenceNumber", record.Change.SequenceNumber,
				"error", err,
			)
			for _, rest := range event.Records[i:] {
				resp.BatchItemFailures = append(resp.BatchItemFailures, events.DynamoDBBatchItemFailure{
					ItemIdentifier: rest.Change.SequenceNumber,
				})
			}
			return resp, nil
		}
	}
	return resp, nil
}

// processRecord reindexes the document of a single stream record.
func (h *Handler) processRecord(ctx context.Context, record *events.DynamoDBEventRecord) error {
	if record.EventName != eventInsert && record.EventName != eventModify {
		return nil
	}
	ref, ok := RefFromStreamKey(record.Change.Keys)
	if !ok {
		return nil
	}

	cfg := h.store.Config()
	if ref.Path == cfg.AutonumberCollection || strings.HasSuffix(ref.Path, cfg.ArchiveSuffix) {
		return nil
	}
	registry := h.store.Registry()
	if registry == nil {
		return nil
	}
	d, ok := registry.ForPath(ref.Path)
	if !ok || len(d.SearchFields) == 0 {
		return nil
	}

	if record.EventName == eventModify && !searchFieldsChanged(record.Change.OldImage, record.Change.NewImage, d.SearchFields) {
		return nil
	}

	changed, err := h.store.Reindex(ctx, d, ref.Path, ref.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted after this record was written.
		return nil
	}
	if err != nil {
		return fmt.Errorf("reindex %s: %w", ref, err)
	}

	h.logger.Info("reindex completed",
		"ref", ref.String(),
		"version", getNumberAttr(record.Change.NewImage, "version"),
		"changed", changed,
	)
	return nil
}

// searchFieldsChanged reports whether any search field differs between the
// data maps of two stream images.
func searchFieldsChanged(oldImage, newImage map[string]events.DynamoDBAttributeValue, fields []string) bool {
	oldData := getMapAttr(oldImage, "data")
	newData := getMapAttr(newImage, "data")
	for _, f := range fields {
		if getStringAttr(oldData, f) != getStringAttr(newData, f) {
			return true
		}
	}
	return false
}

// RefFromStreamKey converts the key of a stream record to a document reference.
func RefFromStreamKey(streamKey map[string]events.DynamoDBAttributeValue) (store.DocRef, bool) {
	ref := store.DocRef{
		Path: getStringAttr(streamKey, "pk"),
		ID:   getStringAttr(streamKey, "sk"),
	}
	if ref.Path == "" || ref.ID == "" {
		return store.DocRef{}, false
	}
	return ref, true
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// getMapAttr extracts a map attribute from a DynamoDB stream image.
func getMapAttr(image map[string]events.DynamoDBAttributeValue, key string) map[string]events.DynamoDBAttributeValue {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeMap {
		return v.Map()
	}
	return nil
}
