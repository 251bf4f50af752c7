package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	firestore "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"todo/internal/service"
)

// Collection holds one document per task.
const Collection = "todos"

// Document fields.
const (
	fieldText      = "text"
	fieldCompleted = "completed"
	fieldUID       = "uid"
	fieldCreated   = "created"
	fieldCategory  = "category"
)

// store is the Firestore view of one signed-in account.
type store struct {
	uid      string
	database string // projects/{p}/databases/(default)
	endpoint string
	http     *http.Client
	docs     *firestore.ProjectsDatabasesDocumentsService
	client   *Client
}

func newStore(c *Client, tf *tokenFile) (*store, error) {
	httpClient := c.opts.HTTPClient
	if httpClient == nil {
		httpClient = oauth2.NewClient(c.base, c.tokenSource(tf))
	}
	svc, err := firestore.NewService(c.base,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(c.opts.FirestoreEndpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore service: %w", err)
	}
	return &store{
		uid:      tf.UID,
		database: "projects/" + c.opts.ProjectID + "/databases/(default)",
		endpoint: strings.TrimRight(c.opts.FirestoreEndpoint, "/") + "/v1/",
		http:     httpClient,
		docs:     svc.Projects.Databases.Documents,
		client:   c,
	}, nil
}

func (s *store) documents() string {
	return s.database + "/documents"
}

func (s *store) docName(id string) string {
	return s.documents() + "/" + Collection + "/" + id
}

func stringValue(v string) firestore.Value {
	return firestore.Value{StringValue: v, ForceSendFields: []string{"StringValue"}}
}

func boolValue(v bool) firestore.Value {
	return firestore.Value{BooleanValue: v, ForceSendFields: []string{"BooleanValue"}}
}

// taskFromDocument converts a todos document. A missing category reads as personal.
func taskFromDocument(doc *firestore.Document) service.Task {
	t := service.Task{
		ID:          path.Base(doc.Name),
		Description: doc.Fields[fieldText].StringValue,
		Completed:   doc.Fields[fieldCompleted].BooleanValue,
		Category:    service.Personal,
	}
	if c := doc.Fields[fieldCategory].StringValue; c != "" {
		t.Category = service.Category(c)
	}
	if ts := doc.Fields[fieldCreated].TimestampValue; ts != "" {
		t.Created, _ = time.Parse(time.RFC3339Nano, ts)
	} else if doc.CreateTime != "" {
		t.Created, _ = time.Parse(time.RFC3339Nano, doc.CreateTime)
	}
	return t
}

// query builds the account's task query, newest first.
func (s *store) query() *firestore.RunQueryRequest {
	uid := firestore.Value{StringValue: s.uid}
	return &firestore.RunQueryRequest{
		StructuredQuery: &firestore.StructuredQuery{
			From: []*firestore.CollectionSelector{{CollectionId: Collection}},
			Where: &firestore.Filter{
				FieldFilter: &firestore.FieldFilter{
					Field: &firestore.FieldReference{FieldPath: fieldUID},
					Op:    "EQUAL",
					Value: &uid,
				},
			},
			OrderBy: []*firestore.Order{{
				Field:     &firestore.FieldReference{FieldPath: fieldCreated},
				Direction: "DESCENDING",
			}},
		},
	}
}

// list runs the query. runQuery streams a JSON array of results, which the
// generated call cannot decode, so the request is issued on the same client.
func (s *store) list(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	body, err := json.Marshal(s.query())
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+s.documents()+":runQuery", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()
	s.client.logger.Debug("firestore runQuery", "status", resp.StatusCode, "took", time.Since(start))

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, wrapError(err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(err)
	}
	var results []*firestore.RunQueryResponse
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrMalformed, err)
	}

	tasks := []service.Task{}
	for _, r := range results {
		if r == nil || r.Document == nil {
			continue
		}
		tasks = append(tasks, taskFromDocument(r.Document))
	}
	return tasks, nil
}

// create commits a new document with a client-generated ID and a server timestamp.
func (s *store) create(ctx context.Context, description string, category service.Category) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	id := uuid.NewString()
	write := &firestore.Write{
		Update: &firestore.Document{
			Name: s.docName(id),
			Fields: map[string]firestore.Value{
				fieldText:      stringValue(description),
				fieldCompleted: boolValue(false),
				fieldUID:       stringValue(s.uid),
				fieldCategory:  stringValue(string(category)),
			},
		},
		UpdateTransforms: []*firestore.FieldTransform{{
			FieldPath:        fieldCreated,
			SetToServerValue: "REQUEST_TIME",
		}},
		CurrentDocument: &firestore.Precondition{Exists: false, ForceSendFields: []string{"Exists"}},
	}

	resp, err := s.docs.Commit(s.database, &firestore.CommitRequest{Writes: []*firestore.Write{write}}).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}

	t := service.Task{ID: id, Description: description, Category: category}
	if len(resp.WriteResults) > 0 && len(resp.WriteResults[0].TransformResults) > 0 {
		t.Created, _ = time.Parse(time.RFC3339Nano, resp.WriteResults[0].TransformResults[0].TimestampValue)
	} else {
		t.Created, _ = time.Parse(time.RFC3339Nano, resp.CommitTime)
	}
	return t, nil
}

// update patches only the fields set in patch.
func (s *store) update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	fields := map[string]firestore.Value{}
	var mask []string
	if patch.Description != nil {
		fields[fieldText] = stringValue(*patch.Description)
		mask = append(mask, fieldText)
	}
	if patch.Category != nil {
		fields[fieldCategory] = stringValue(string(*patch.Category))
		mask = append(mask, fieldCategory)
	}
	if patch.Completed != nil {
		fields[fieldCompleted] = boolValue(*patch.Completed)
		mask = append(mask, fieldCompleted)
	}

	call := s.docs.Patch(s.docName(id), &firestore.Document{Fields: fields}).
		CurrentDocumentExists(true).
		Context(ctx)
	if len(mask) > 0 {
		call = call.UpdateMaskFieldPaths(mask...)
	}
	doc, err := call.Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return taskFromDocument(doc), nil
}

func (s *store) delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := s.docs.Delete(s.docName(id)).CurrentDocumentExists(true).Context(ctx).Do()
	return wrapError(err)
}

// ListTasks implements service.Service, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	st, err := c.current()
	if err != nil {
		return nil, err
	}
	return st.list(ctx)
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, description string, category service.Category) (service.Task, error) {
	st, err := c.current()
	if err != nil {
		return service.Task{}, err
	}
	return st.create(ctx, description, category)
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	st, err := c.current()
	if err != nil {
		return service.Task{}, err
	}
	return st.update(ctx, id, patch)
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	st, err := c.current()
	if err != nil {
		return err
	}
	return st.delete(ctx, id)
}
