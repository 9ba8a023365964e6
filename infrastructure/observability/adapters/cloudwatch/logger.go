package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/vesla0x1/multiruntime/application/ports"
	"github.com/vesla0x1/multiruntime/infrastructure/config"
)

// LogsAPI is the subset of the CloudWatch Logs client the logger uses.
type LogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// sink serializes writes to one log stream; it is shared by derived loggers.
type sink struct {
	client    LogsAPI
	logGroup  string
	logStream string
	mu        sync.Mutex
	wg        sync.WaitGroup
}

// Logger implements ports.Logger using AWS CloudWatch Logs
type Logger struct {
	sink       *sink
	baseFields map[string]interface{}
	level      LogLevel
}

// NewLogger creates a CloudWatch logger from configuration
func NewLogger(ctx context.Context, cfg *config.Config) (*Logger, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Observability.CloudWatchRegion),
	}
	if cfg.Observability.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Observability.AccessKeyID,
				cfg.Observability.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logStream := fmt.Sprintf("%s-%s-%d", cfg.ServiceName, cfg.Environment, time.Now().Unix())

	l := NewWithClient(cloudwatchlogs.NewFromConfig(awsCfg), cfg.Observability.CloudWatchLogGroup, logStream, cfg.LogLevel)
	l.baseFields["service"] = cfg.ServiceName
	l.baseFields["environment"] = cfg.Environment
	if cfg.Version != "" {
		l.baseFields["version"] = cfg.Version
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := l.ensureLogGroup(initCtx); err != nil {
		return nil, fmt.Errorf("failed to ensure log group: %w", err)
	}
	if err := l.ensureLogStream(initCtx); err != nil {
		return nil, fmt.Errorf("failed to ensure log stream: %w", err)
	}

	return l, nil
}

// NewWithClient builds a logger around an existing client. The log group and
// stream are assumed to exist.
func NewWithClient(client LogsAPI, logGroup, logStream, level string) *Logger {
	return &Logger{
		sink: &sink{
			client:    client,
			logGroup:  logGroup,
			logStream: logStream,
		},
		baseFields: make(map[string]interface{}),
		level:      parseLogLevel(level),
	}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(DebugLevel, "DEBUG", msg, fields)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, "INFO", msg, fields)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, "WARN", msg, fields)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, "ERROR", msg, fields)
}

// WithFields returns a new logger with additional default fields
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	newFields := make(map[string]interface{}, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		sink:       l.sink,
		baseFields: newFields,
		level:      l.level,
	}
}

// Flush waits until every pending log event has been sent.
func (l *Logger) Flush() {
	l.sink.wg.Wait()
}

func (l *Logger) log(level LogLevel, levelName, msg string, fields []interface{}) {
	if level < l.level {
		return
	}

	entry := l.buildLogEntry(levelName, msg, fieldsToMap(fields...))

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"error":"failed to marshal log"}`, levelName, msg))
	}

	l.sink.send(string(data))
}

// send ships one event asynchronously; events are written in order.
func (s *sink) send(message string) {
	input := &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(s.logGroup),
		LogStreamName: aws.String(s.logStream),
		LogEvents: []types.InputLogEvent{
			{
				Message:   aws.String(message),
				Timestamp: aws.Int64(time.Now().UnixMilli()),
			},
		},
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.mu.Lock()
		defer s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, _ = s.client.PutLogEvents(ctx, input)
	}()
}

// buildLogEntry constructs the log entry with all fields
func (l *Logger) buildLogEntry(level, msg string, fields map[string]interface{}) map[string]interface{} {
	entry := make(map[string]interface{}, len(l.baseFields)+len(fields)+3)

	for k, v := range l.baseFields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["message"] = msg

	return entry
}

func (l *Logger) ensureLogGroup(ctx context.Context) error {
	_, err := l.sink.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(l.sink.logGroup),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return err
	}
	return nil
}

func (l *Logger) ensureLogStream(ctx context.Context) error {
	_, err := l.sink.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(l.sink.logGroup),
		LogStreamName: aws.String(l.sink.logStream),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return err
	}
	return nil
}

// fieldsToMap converts alternating key/value pairs into a map
func fieldsToMap(fields ...interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = fields[i+1]
	}
	return out
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}
