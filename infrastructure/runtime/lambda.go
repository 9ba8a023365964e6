package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/vesla0x1/multiruntime/application/ports"
)

// LambdaAdapter translates API Gateway (REST and HTTP API) and ALB events
// into normalized requests and the handler's response back into the
// matching events response type.
type LambdaAdapter struct {
	exec *executor
}

var _ ports.Adapter = (*LambdaAdapter)(nil)

// NewLambdaAdapter creates the adapter for AWS Lambda.
func NewLambdaAdapter(cfg AdapterConfig) *LambdaAdapter {
	return &LambdaAdapter{exec: newExecutor(ports.RuntimeLambda, cfg)}
}

func (a *LambdaAdapter) Platform() ports.RuntimeKind {
	return ports.RuntimeLambda
}

func (a *LambdaAdapter) Environment() map[string]string {
	info := a.exec.environment(false)
	if lambdacontext.MemoryLimitInMB > 0 {
		info["memory_limit_mb"] = strconv.Itoa(lambdacontext.MemoryLimitInMB)
	}
	if lambdacontext.LogGroupName != "" {
		info["log_group"] = lambdacontext.LogGroupName
	}
	return info
}

func (a *LambdaAdapter) SupportsPersistentConnections() bool {
	return false
}

// Start hands the adapter to the Lambda runtime. It does not return.
func (a *LambdaAdapter) Start() {
	a.exec.logger.Info("Starting Lambda runtime")
	lambda.Start(a.Handle)
}

// Handle is the Lambda entry point. It never reports an invocation error:
// every failure is answered with a 5xx response of the event's shape, or of
// the HTTP API shape when the event could not be recognized.
func (a *LambdaAdapter) Handle(ctx context.Context, event json.RawMessage) (interface{}, error) {
	started := time.Now()
	a.exec.metrics.IncrementCounter("invocations", map[string]string{"platform": ports.RuntimeLambda.String()})

	result, status := a.routeEvent(ctx, event)
	a.exec.record(status, started)

	return result, nil
}

// routeEvent determines the event shape and routes to the matching translator.
func (a *LambdaAdapter) routeEvent(ctx context.Context, event json.RawMessage) (interface{}, int) {
	switch shape := peekEventShape(event); shape {
	case shapeHTTPAPI:
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return a.parseFailure(ctx, err)
		}
		return a.processHTTPAPI(ctx, req)

	case shapeALB:
		var req events.ALBTargetGroupRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return a.parseFailure(ctx, err)
		}
		return a.processALB(ctx, req)

	case shapeRESTAPI:
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return a.parseFailure(ctx, err)
		}
		return a.processRESTAPI(ctx, req)

	default:
		return a.parseFailure(ctx, ErrUnsupportedEvent)
	}
}

// --- Event shape detection ---

type eventShape int

const (
	shapeUnknown eventShape = iota
	shapeHTTPAPI
	shapeRESTAPI
	shapeALB
)

func peekEventShape(event json.RawMessage) eventShape {
	var probe struct {
		Version        string `json:"version"`
		HTTPMethod     string `json:"httpMethod"`
		RequestContext struct {
			HTTP json.RawMessage `json:"http"`
			ELB  json.RawMessage `json:"elb"`
		} `json:"requestContext"`
	}
	if err := json.Unmarshal(event, &probe); err != nil {
		return shapeUnknown
	}

	switch {
	case probe.Version == "2.0" || len(probe.RequestContext.HTTP) > 0:
		return shapeHTTPAPI
	case len(probe.RequestContext.ELB) > 0:
		return shapeALB
	case probe.HTTPMethod != "":
		return shapeRESTAPI
	default:
		return shapeUnknown
	}
}

// --- HTTP API (payload format 2.0) ---

func (a *LambdaAdapter) processHTTPAPI(ctx context.Context, event events.APIGatewayV2HTTPRequest) (interface{}, int) {
	headers := headersFromMap(event.Headers, nil)
	if len(event.Cookies) > 0 {
		headers.Add("Cookie", strings.Join(event.Cookies, "; "))
	}

	body, err := decodeEventBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return a.badEvent(ctx, err, httpAPIResponse)
	}

	req := &ports.Request{
		ID:         a.requestID(ctx, event.RequestContext.RequestID),
		Source:     ports.RuntimeLambda,
		Method:     event.RequestContext.HTTP.Method,
		Path:       firstNonEmpty(event.RawPath, event.RequestContext.HTTP.Path),
		RawQuery:   event.RawQueryString,
		Headers:    headers,
		RemoteAddr: event.RequestContext.HTTP.SourceIP,
		ReceivedAt: time.Now().UTC(),
	}

	resp, ok := a.execute(ctx, req, body)
	if !ok {
		resp = tooLargeResponse()
	}
	return httpAPIResponse(resp), resp.StatusCode
}

func httpAPIResponse(resp *ports.Response) interface{} {
	body, encoded := encodeEventBody(resp.Body)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode:      resp.StatusCode,
		Headers:         make(map[string]string, len(resp.Headers)),
		Body:            body,
		IsBase64Encoded: encoded,
	}
	for name, values := range resp.Headers {
		if http.CanonicalHeaderKey(name) == "Set-Cookie" {
			out.Cookies = append(out.Cookies, values...)
			continue
		}
		out.Headers[name] = strings.Join(values, ",")
	}
	return out
}

// --- REST API (payload format 1.0) ---

func (a *LambdaAdapter) processRESTAPI(ctx context.Context, event events.APIGatewayProxyRequest) (interface{}, int) {
	body, err := decodeEventBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return a.badEvent(ctx, err, restAPIResponse)
	}

	req := &ports.Request{
		ID:         a.requestID(ctx, event.RequestContext.RequestID),
		Source:     ports.RuntimeLambda,
		Method:     event.HTTPMethod,
		Path:       event.Path,
		RawQuery:   encodeQuery(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		Headers:    headersFromMap(event.Headers, event.MultiValueHeaders),
		RemoteAddr: event.RequestContext.Identity.SourceIP,
		ReceivedAt: time.Now().UTC(),
	}

	resp, ok := a.execute(ctx, req, body)
	if !ok {
		resp = tooLargeResponse()
	}
	return restAPIResponse(resp), resp.StatusCode
}

func restAPIResponse(resp *ports.Response) interface{} {
	body, encoded := encodeEventBody(resp.Body)

	return events.APIGatewayProxyResponse{
		StatusCode:        resp.StatusCode,
		MultiValueHeaders: map[string][]string(resp.Headers),
		Body:              body,
		IsBase64Encoded:   encoded,
	}
}

// --- ALB target group ---

func (a *LambdaAdapter) processALB(ctx context.Context, event events.ALBTargetGroupRequest) (interface{}, int) {
	multiValue := len(event.MultiValueHeaders) > 0 || len(event.MultiValueQueryStringParameters) > 0
	translate := func(resp *ports.Response) interface{} {
		return albResponse(resp, multiValue)
	}

	body, err := decodeEventBody(event.Body, event.IsBase64Encoded)
	if err != nil {
		return a.badEvent(ctx, err, translate)
	}

	headers := headersFromMap(event.Headers, event.MultiValueHeaders)
	remote := ""
	if fwd := headers.Get("X-Forwarded-For"); fwd != "" {
		remote = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	req := &ports.Request{
		ID:         a.requestID(ctx, ""),
		Source:     ports.RuntimeLambda,
		Method:     event.HTTPMethod,
		Path:       event.Path,
		RawQuery:   encodeQuery(event.QueryStringParameters, event.MultiValueQueryStringParameters),
		Headers:    headers,
		RemoteAddr: remote,
		ReceivedAt: time.Now().UTC(),
	}

	resp, ok := a.execute(ctx, req, body)
	if !ok {
		resp = tooLargeResponse()
	}
	return translate(resp), resp.StatusCode
}

func albResponse(resp *ports.Response, multiValue bool) interface{} {
	body, encoded := encodeEventBody(resp.Body)

	out := events.ALBTargetGroupResponse{
		StatusCode:        resp.StatusCode,
		StatusDescription: fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		Body:              body,
		IsBase64Encoded:   encoded,
	}
	if multiValue {
		out.MultiValueHeaders = map[string][]string(resp.Headers)
	} else {
		out.Headers = make(map[string]string, len(resp.Headers))
		for name, values := range resp.Headers {
			out.Headers[name] = strings.Join(values, ",")
		}
	}
	return out
}

// --- Execution ---

// execute applies the body limit and runs the handler. It reports false
// when the body exceeds the limit and the handler was not invoked.
func (a *LambdaAdapter) execute(ctx context.Context, req *ports.Request, body []byte) (*ports.Response, bool) {
	if int64(len(body)) > a.exec.maxBodyBytes {
		a.exec.logger.Warn("Request body too large",
			"request_id", req.ID,
			"size", len(body),
			"limit", a.exec.maxBodyBytes)
		return nil, false
	}
	if len(body) > 0 {
		req.Body = body
	}

	resp, _ := a.exec.invokeBuffered(ctx, req)
	return resp, true
}

func (a *LambdaAdapter) parseFailure(ctx context.Context, err error) (interface{}, int) {
	a.exec.logger.Error("Failed to parse Lambda event", "error", err)
	a.exec.metrics.IncrementCounter("invocations.unsupported", nil)

	resp := a.exec.failureResponse(a.requestID(ctx, ""), fmt.Errorf("failed to parse event: %w", err))
	return httpAPIResponse(resp), resp.StatusCode
}

func (a *LambdaAdapter) badEvent(ctx context.Context, err error, translate func(*ports.Response) interface{}) (interface{}, int) {
	a.exec.logger.Warn("Invalid request body encoding", "error", err)

	rec := newRecorder()
	writeJSON(rec, http.StatusBadRequest, badRequestBody())
	resp := rec.response()
	return translate(resp), resp.StatusCode
}

// requestID prefers the invocation's AWS request id, then the id carried
// by the event.
func (a *LambdaAdapter) requestID(ctx context.Context, fromEvent string) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if fromEvent != "" {
		return fromEvent
	}
	return uuid.NewString()
}

// --- Translation helpers ---

// headersFromMap merges single and multi-value header maps in sorted name
// order. Multi-value entries win for names present in both.
func headersFromMap(single map[string]string, multi map[string][]string) ports.Headers {
	names := make([]string, 0, len(single)+len(multi))
	for name := range multi {
		names = append(names, name)
	}
	for name := range single {
		if _, ok := multi[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	headers := make(ports.Headers, 0, len(names))
	for _, name := range names {
		if values, ok := multi[name]; ok {
			for _, v := range values {
				headers.Add(name, v)
			}
			continue
		}
		headers.Add(name, single[name])
	}
	return headers
}

func encodeQuery(single map[string]string, multi map[string][]string) string {
	values := url.Values{}
	for k, v := range multi {
		values[k] = append([]string(nil), v...)
	}
	for k, v := range single {
		if _, ok := values[k]; !ok {
			values.Set(k, v)
		}
	}
	return values.Encode()
}

func decodeEventBody(body string, base64Encoded bool) ([]byte, error) {
	if body == "" {
		return nil, nil
	}
	if !base64Encoded {
		return []byte(body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 body: %w", err)
	}
	return decoded, nil
}

// encodeEventBody returns the body as text when it is valid UTF-8 and
// base64 otherwise.
func encodeEventBody(body []byte) (string, bool) {
	if utf8.Valid(body) {
		return string(body), false
	}
	return base64.StdEncoding.EncodeToString(body), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
