package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Notion property names read from knowledge pages. The title is taken from
// whichever property has the title type.
const (
	notionTextProperty = "Text"
	notionTagsProperty = "Tags"
)

// NotionQuerier queries a Notion database. It enables mocking of the API.
type NotionQuerier interface {
	QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// NotionClient is the NotionQuerier backed by the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a NotionClient with the provided integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{client: notionapi.NewClient(notionapi.Token(token))}
}

// QueryDatabase queries a Notion database with the given request.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

// NotionSource imports the pages of one Notion database.
type NotionSource struct {
	DatabaseID string
	Client     NotionQuerier
}

func (s NotionSource) Name() string { return "notion" }

// Load reads every non-archived page. Pages without text are skipped.
func (s NotionSource) Load(ctx context.Context) ([]domain.KnowledgeDoc, error) {
	if s.Client == nil || s.DatabaseID == "" {
		return nil, fmt.Errorf("NotionSource.Load: client and database id are required")
	}
	pages, err := queryAllPages(ctx, s.Client, s.DatabaseID)
	if err != nil {
		return nil, fmt.Errorf("NotionSource.Load: %w", err)
	}

	docs := make([]domain.KnowledgeDoc, 0, len(pages))
	for _, page := range pages {
		if page.Archived {
			continue
		}
		doc := pageToDoc(page)
		if doc.Text == "" {
			continue
		}
		doc.Source = s.Name()
		docs = append(docs, doc)
	}
	return docs, nil
}

// queryAllPages follows the cursor until the database is exhausted.
func queryAllPages(ctx context.Context, client NotionQuerier, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}
		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}

func pageToDoc(page notionapi.Page) domain.KnowledgeDoc {
	doc := domain.KnowledgeDoc{Tags: []string{}}
	for name, prop := range page.Properties {
		switch p := prop.(type) {
		case *notionapi.TitleProperty:
			doc.Title = plainText(p.Title)
		case *notionapi.RichTextProperty:
			if name == notionTextProperty {
				doc.Text = plainText(p.RichText)
			}
		case *notionapi.MultiSelectProperty:
			if name == notionTagsProperty {
				for _, opt := range p.MultiSelect {
					doc.Tags = append(doc.Tags, opt.Name)
				}
			}
		}
	}
	doc.CreatedAt = page.CreatedTime.UTC()
	return doc
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		text := rt.PlainText
		if text == "" && rt.Text != nil {
			text = rt.Text.Content
		}
		b.WriteString(text)
	}
	return strings.TrimSpace(b.String())
}
