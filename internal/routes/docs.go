package routes

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/AlumniNetworkBack/internal/config"
	"gopkg.in/yaml.v3"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    body { margin: 0; font-family: Georgia, "Times New Roman", serif; color: #132019; background: #f6f7f4; }
    main { max-width: 1120px; margin: 0 auto; padding: 48px 20px 64px; }
    h1 { margin: 0 0 12px; font-size: 2.4rem; }
    p, li { color: #536258; line-height: 1.6; }
    table { width: 100%; border-collapse: collapse; margin: 20px 0; background: #fff; }
    th, td { text-align: left; padding: 8px 12px; border-bottom: 1px solid #d8ddd6; font-size: 0.95rem; }
    code { font-family: ui-monospace, monospace; }
    pre { margin: 0; padding: 20px; overflow: auto; border-radius: 14px; background: #0f172a; color: #e2e8f0; font-size: 0.9rem; }
  </style>
</head>
<body>
  <main>
    <h1>{{ .Title }}</h1>
    <p>Generated at {{ .LoadedAt }}. The raw document lives at <a href="/docs/openapi.yaml">/docs/openapi.yaml</a>.</p>
    <table>
      <thead><tr><th>Method</th><th>Path</th><th>Summary</th></tr></thead>
      <tbody>
      {{ range .Operations }}<tr><td><code>{{ .Method }}</code></td><td><code>{{ .Path }}</code></td><td>{{ .Summary }}</td></tr>
      {{ end }}</tbody>
    </table>
    <pre>{{ .Spec }}</pre>
  </main>
</body>
</html>
`

type docsPageData struct {
	Title      string
	LoadedAt   string
	Operations []apiOperation
	Spec       string
}

// apiOperation is one row of the HTTP contract. The OpenAPI document and the
// docs page are both rendered from apiOperations.
type apiOperation struct {
	Method    string
	Path      string
	Summary   string
	Tag       string
	Query     []string
	Body      string
	Public    bool
	Responses map[int]string
}

var apiOperations = []apiOperation{
	{Method: "GET", Path: "/health", Summary: "Liveness probe", Tag: "ops", Public: true, Responses: map[int]string{200: "Service is up"}},
	{Method: "GET", Path: "/metrics", Summary: "Prometheus metrics", Tag: "ops", Public: true, Responses: map[int]string{200: "Prometheus exposition"}},
	{Method: "POST", Path: "/api/connections/request", Summary: "Send a connection request", Tag: "connections", Body: "ConnectionPair",
		Responses: map[int]string{201: "Request created", 400: "AlreadyRequested, AlreadyConnected or invalid input", 403: "Actor is not the sender", 404: "Unknown user"}},
	{Method: "DELETE", Path: "/api/connections/unsend", Summary: "Withdraw a pending request", Tag: "connections", Body: "ConnectionPair",
		Responses: map[int]string{200: "Request withdrawn", 400: "NoSuchRequest", 403: "Actor is not the sender"}},
	{Method: "PUT", Path: "/api/connections/status", Summary: "Accept or decline a request", Tag: "connections", Body: "RespondRequest",
		Responses: map[int]string{200: "Request resolved", 400: "NoSuchRequest or InvalidDecision", 403: "Actor is not the recipient"}},
	{Method: "DELETE", Path: "/api/connections/:email", Summary: "Remove a connection", Tag: "connections",
		Responses: map[int]string{200: "Disconnected", 400: "NotConnected"}},
	{Method: "GET", Path: "/api/connections", Summary: "List connections", Tag: "connections", Query: []string{"email"},
		Responses: map[int]string{200: "Connections of the user"}},
	{Method: "GET", Path: "/api/connections/pending", Summary: "List requests received", Tag: "connections", Query: []string{"email"},
		Responses: map[int]string{200: "Pending requests addressed to the user"}},
	{Method: "GET", Path: "/api/connections/sent", Summary: "List requests sent", Tag: "connections", Query: []string{"email"},
		Responses: map[int]string{200: "Pending requests sent by the user"}},
	{Method: "GET", Path: "/api/connections/status/:email", Summary: "Relationship with another user", Tag: "connections",
		Responses: map[int]string{200: "none, pending_sent, pending_received, mutual_pending or connected"}},
	{Method: "GET", Path: "/api/network", Summary: "Network view", Tag: "connections", Query: []string{"email"},
		Responses: map[int]string{200: "Connections, pending requests and recommendations"}},
	{Method: "POST", Path: "/api/messages/send", Summary: "Send a direct message", Tag: "messages", Body: "SendMessage",
		Responses: map[int]string{200: "Duplicate of an earlier send", 201: "Message stored", 400: "EmptyContent or invalid input", 404: "Unknown user"}},
	{Method: "GET", Path: "/api/messages/users", Summary: "List contacts", Tag: "messages", Query: []string{"email", "page", "limit"},
		Responses: map[int]string{200: "Every other user with pagination"}},
	{Method: "GET", Path: "/api/messages/chats/:email", Summary: "Chat list", Tag: "messages",
		Responses: map[int]string{200: "Conversations newest first"}},
	{Method: "GET", Path: "/api/messages/:userA/:userB", Summary: "Conversation thread", Tag: "messages", Query: []string{"after", "limit"},
		Responses: map[int]string{200: "Messages in send order", 403: "Actor is not a participant"}},
	{Method: "GET", Path: "/api/ws", Summary: "Realtime events over websocket", Tag: "realtime", Query: []string{"token"},
		Responses: map[int]string{101: "Switching protocols", 401: "Invalid or expired token", 426: "Upgrade required"}},
}

type openAPIDocument struct {
	OpenAPI    string                                 `yaml:"openapi"`
	Info       openAPIInfo                            `yaml:"info"`
	Paths      map[string]map[string]openAPIOperation `yaml:"paths"`
	Components openAPIComponents                      `yaml:"components"`
}

type openAPIInfo struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

type openAPIOperation struct {
	Summary     string                     `yaml:"summary"`
	Tags        []string                   `yaml:"tags"`
	Security    []map[string][]string      `yaml:"security,omitempty"`
	Parameters  []openAPIParameter         `yaml:"parameters,omitempty"`
	RequestBody *openAPIRequestBody        `yaml:"requestBody,omitempty"`
	Responses   map[string]openAPIResponse `yaml:"responses"`
}

type openAPIParameter struct {
	Name     string         `yaml:"name"`
	In       string         `yaml:"in"`
	Required bool           `yaml:"required"`
	Schema   map[string]any `yaml:"schema"`
}

type openAPIRequestBody struct {
	Required bool                      `yaml:"required"`
	Content  map[string]openAPIContent `yaml:"content"`
}

type openAPIContent struct {
	Schema map[string]any `yaml:"schema"`
}

type openAPIResponse struct {
	Description string `yaml:"description"`
}

type openAPIComponents struct {
	SecuritySchemes map[string]map[string]string `yaml:"securitySchemes"`
	Schemas         map[string]map[string]any    `yaml:"schemas"`
}

func stringProperty(format string) map[string]any {
	property := map[string]any{"type": "string"}
	if format != "" {
		property["format"] = format
	}
	return property
}

var openAPISchemas = map[string]map[string]any{
	"ConnectionPair": {
		"type":     "object",
		"required": []string{"fromEmail", "toEmail"},
		"properties": map[string]any{
			"fromEmail": stringProperty("email"),
			"toEmail":   stringProperty("email"),
		},
	},
	"RespondRequest": {
		"type":     "object",
		"required": []string{"fromEmail", "toEmail", "status"},
		"properties": map[string]any{
			"fromEmail": stringProperty("email"),
			"toEmail":   stringProperty("email"),
			"status":    map[string]any{"type": "string", "enum": []string{"accepted", "declined"}},
		},
	},
	"SendMessage": {
		"type":     "object",
		"required": []string{"sender", "receiver", "content"},
		"properties": map[string]any{
			"sender":         stringProperty("email"),
			"receiver":       stringProperty("email"),
			"content":        stringProperty(""),
			"idempotencyKey": map[string]any{"type": "string", "maxLength": 128},
		},
	},
	"Error": {
		"type": "object",
		"properties": map[string]any{
			"error": stringProperty(""),
			"code":  stringProperty(""),
		},
	},
}

// openAPIPath rewrites fiber's ":param" segments into "{param}".
func openAPIPath(path string) (string, []string) {
	segments := strings.Split(path, "/")
	var params []string
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			name := strings.TrimPrefix(segment, ":")
			params = append(params, name)
			segments[i] = "{" + name + "}"
		}
	}
	return strings.Join(segments, "/"), params
}

func buildOpenAPISpec(operations []apiOperation) ([]byte, error) {
	doc := openAPIDocument{
		OpenAPI: "3.0.3",
		Info:    openAPIInfo{Title: "Alumni Network API", Version: "1.0.0"},
		Paths:   make(map[string]map[string]openAPIOperation),
		Components: openAPIComponents{
			SecuritySchemes: map[string]map[string]string{
				"bearerAuth": {"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			Schemas: openAPISchemas,
		},
	}

	for _, op := range operations {
		path, pathParams := openAPIPath(op.Path)
		operation := openAPIOperation{
			Summary:   op.Summary,
			Tags:      []string{op.Tag},
			Responses: make(map[string]openAPIResponse, len(op.Responses)),
		}
		if !op.Public {
			operation.Security = []map[string][]string{{"bearerAuth": {}}}
		}
		for _, name := range pathParams {
			operation.Parameters = append(operation.Parameters, openAPIParameter{
				Name: name, In: "path", Required: true, Schema: stringProperty(""),
			})
		}
		for _, name := range op.Query {
			operation.Parameters = append(operation.Parameters, openAPIParameter{
				Name: name, In: "query", Schema: stringProperty(""),
			})
		}
		if op.Body != "" {
			operation.RequestBody = &openAPIRequestBody{
				Required: true,
				Content: map[string]openAPIContent{
					fiber.MIMEApplicationJSON: {Schema: map[string]any{"$ref": "#/components/schemas/" + op.Body}},
				},
			}
		}
		for status, description := range op.Responses {
			operation.Responses[fmt.Sprintf("%d", status)] = openAPIResponse{Description: description}
		}
		if !op.Public {
			operation.Responses["401"] = openAPIResponse{Description: "Missing or invalid bearer token"}
			operation.Responses["503"] = openAPIResponse{Description: "StoreUnavailable, retry after the Retry-After delay"}
		}

		methods, ok := doc.Paths[path]
		if !ok {
			methods = make(map[string]openAPIOperation)
			doc.Paths[path] = methods
		}
		methods[strings.ToLower(op.Method)] = operation
	}

	return yaml.Marshal(doc)
}

func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	spec, err := buildOpenAPISpec(apiOperations)
	if err != nil {
		return fmt.Errorf("build openapi spec: %w", err)
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}

	pageData := docsPageData{
		Title:      "Alumni Network API Docs",
		LoadedAt:   time.Now().UTC().Format(time.RFC3339),
		Operations: apiOperations,
		Spec:       string(spec),
	}

	indexHandler := func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		if err := indexTemplate.Execute(&body, pageData); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}

		return c.Status(fiber.StatusOK).Send(body.Bytes())
	}

	app.Get("/docs", indexHandler)
	app.Get("/docs/", indexHandler)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="openapi.yaml"`)
		return c.Status(fiber.StatusOK).Send(spec)
	})

	return nil
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Cross-Origin-Resource-Policy", "same-origin")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
