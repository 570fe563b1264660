package vendors

import (
	"strings"
	"sync"

	"github.com/Octopus-Moneycoach/coaching-ai/config"
	"github.com/Octopus-Moneycoach/coaching-ai/log"
	"github.com/meilisearch/meilisearch-go"
)

var (
	meiliClient     *MeiliClient
	meiliClientOnce sync.Once
	meiliLogger     = log.GetLogger("Meilisearch")
)

// MeiliClient indexes merged check results so reviewers can search evidence
type MeiliClient struct {
	client   meilisearch.ServiceManager
	index    meilisearch.IndexManager
	indexUID string
}

// CheckDocument is one merged check result as stored in the index
type CheckDocument struct {
	DocumentID    string  `json:"documentId"`
	MeetingID     string  `json:"meetingId"`
	CheckID       string  `json:"checkId"`
	Label         string  `json:"label"`
	Status        string  `json:"status"`
	Severity      string  `json:"severity"`
	Theme         string  `json:"theme"`
	Confidence    float64 `json:"confidence"`
	EvidenceQuote string  `json:"evidenceQuote"`
	Comment       string  `json:"comment"`
	CreatedAt     int64   `json:"createdAt"`
}

// CheckDocumentID is the index primary key of a meeting's check result
func CheckDocumentID(meetingID, checkID string) string {
	return meetingID + "_" + checkID
}

// MeiliSearchOptions holds search options
type MeiliSearchOptions struct {
	Limit     int
	Offset    int
	Status    string
	CheckID   string
	MeetingID string
}

// MeiliSearchResult represents a search result
type MeiliSearchResult struct {
	Hits               []MeiliHit `json:"hits"`
	EstimatedTotalHits int        `json:"estimatedTotalHits"`
	Limit              int        `json:"limit"`
	Offset             int        `json:"offset"`
	Query              string     `json:"query"`
}

// MeiliHit represents a single search hit
type MeiliHit struct {
	CheckDocument
	Formatted map[string]string `json:"formatted,omitempty"`
}

// GetMeiliClient returns the singleton Meilisearch client, or nil when disabled
func GetMeiliClient() *MeiliClient {
	meiliClientOnce.Do(func() {
		cfg := config.Get()
		if cfg.MeiliHost == "" {
			meiliLogger.Warn().Msg("MEILI_HOST not configured, Meilisearch disabled")
			return
		}

		client := meilisearch.New(cfg.MeiliHost, meilisearch.WithAPIKey(cfg.MeiliAPIKey))

		// Verify connection
		if _, err := client.Health(); err != nil {
			meiliLogger.Error().Err(err).Msg("failed to connect to Meilisearch")
			return
		}

		index := client.Index(cfg.MeiliIndex)
		if _, err := index.UpdateFilterableAttributes(&[]string{"meetingId", "checkId", "status", "severity", "theme"}); err != nil {
			meiliLogger.Warn().Err(err).Msg("failed to set filterable attributes")
		}

		meiliClient = &MeiliClient{
			client:   client,
			index:    index,
			indexUID: cfg.MeiliIndex,
		}

		meiliLogger.Info().Str("host", cfg.MeiliHost).Str("index", cfg.MeiliIndex).Msg("Meilisearch initialized")
	})

	return meiliClient
}

// IndexChecks adds or replaces check documents
func (m *MeiliClient) IndexChecks(docs []CheckDocument) error {
	if m == nil || len(docs) == 0 {
		return nil
	}

	_, err := m.index.AddDocuments(docs, "documentId")
	return err
}

// Search performs a search query
func (m *MeiliClient) Search(query string, opts MeiliSearchOptions) (*MeiliSearchResult, error) {
	if m == nil {
		return nil, ErrDisabled
	}

	searchReq := &meilisearch.SearchRequest{
		Limit:                 int64(opts.Limit),
		Offset:                int64(opts.Offset),
		AttributesToHighlight: []string{"evidenceQuote", "comment", "label"},
		AttributesToCrop:      []string{"evidenceQuote"},
		CropLength:            60,
	}
	if filter := buildFilter(opts); filter != "" {
		searchReq.Filter = filter
	}

	resp, err := m.index.Search(query, searchReq)
	if err != nil {
		return nil, err
	}

	result := &MeiliSearchResult{
		Hits:               []MeiliHit{},
		EstimatedTotalHits: int(resp.EstimatedTotalHits),
		Limit:              opts.Limit,
		Offset:             opts.Offset,
		Query:              query,
	}

	for _, hit := range resp.Hits {
		h, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		result.Hits = append(result.Hits, hitFromMap(h))
	}

	return result, nil
}

// DeleteMeeting removes every check document of a meeting
func (m *MeiliClient) DeleteMeeting(meetingID string) error {
	if m == nil {
		return nil
	}
	_, err := m.index.DeleteDocumentsByFilter(`meetingId = "` + escapeFilter(meetingID) + `"`)
	return err
}

func buildFilter(opts MeiliSearchOptions) string {
	var filters []string
	if opts.Status != "" {
		filters = append(filters, `status = "`+escapeFilter(opts.Status)+`"`)
	}
	if opts.CheckID != "" {
		filters = append(filters, `checkId = "`+escapeFilter(opts.CheckID)+`"`)
	}
	if opts.MeetingID != "" {
		filters = append(filters, `meetingId = "`+escapeFilter(opts.MeetingID)+`"`)
	}
	return strings.Join(filters, " AND ")
}

func hitFromMap(h map[string]interface{}) MeiliHit {
	hit := MeiliHit{CheckDocument: CheckDocument{
		DocumentID:    getString(h, "documentId"),
		MeetingID:     getString(h, "meetingId"),
		CheckID:       getString(h, "checkId"),
		Label:         getString(h, "label"),
		Status:        getString(h, "status"),
		Severity:      getString(h, "severity"),
		Theme:         getString(h, "theme"),
		EvidenceQuote: getString(h, "evidenceQuote"),
		Comment:       getString(h, "comment"),
	}}
	if v, ok := h["confidence"].(float64); ok {
		hit.Confidence = v
	}
	if v, ok := h["createdAt"].(float64); ok {
		hit.CreatedAt = int64(v)
	}

	// Get formatted (highlighted) fields
	if formatted, ok := h["_formatted"].(map[string]interface{}); ok {
		hit.Formatted = make(map[string]string)
		for k, v := range formatted {
			if s, ok := v.(string); ok {
				hit.Formatted[k] = s
			}
		}
	}
	return hit
}

// Helper functions

func escapeFilter(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
