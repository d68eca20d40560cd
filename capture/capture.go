// Package capture archives raw venue payloads as parquet so that observed
// response quirks survive as reviewable fixtures. Batches land in a local
// directory or in S3 depending on configuration.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "tradewire/config"
	"tradewire/logger"
)

// Record is one archived venue response.
type Record struct {
	Exchange     string `parquet:"name=exchange, type=BYTE_ARRAY, convertedtype=UTF8"`
	Endpoint     string `parquet:"name=endpoint, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol       string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status       int32  `parquet:"name=status, type=INT32"`
	Payload      string `parquet:"name=payload, type=BYTE_ARRAY, convertedtype=UTF8"`
	ReceivedTime int64  `parquet:"name=received_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// in-memory parquet sink, the library wants a file interface
type memFileWriter struct{ buffer *bytes.Buffer }

func newMemFileWriter() *memFileWriter { return &memFileWriter{buffer: &bytes.Buffer{}} }

func (m *memFileWriter) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFileWriter) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFileWriter) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFileWriter) Read([]byte) (int, error)                  { return 0, nil }
func (m *memFileWriter) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFileWriter) Close() error                              { return nil }
func (m *memFileWriter) Bytes() []byte                             { return m.buffer.Bytes() }

// Archiver buffers records per exchange and endpoint and flushes them as
// snappy parquet batches, periodically or when a buffer exceeds the batch
// size.
type Archiver struct {
	cfg         *appconfig.Config
	s3Client    *s3.Client
	buffer      map[string][]Record
	mu          sync.Mutex
	flushTicker *time.Ticker
	ctx         context.Context
	wg          *sync.WaitGroup
	running     bool
	log         *logger.Log
}

// NewArchiver initializes an archiver. The S3 client is only built when S3
// storage is enabled; otherwise batches go to the local output directory.
func NewArchiver(cfg *appconfig.Config) (*Archiver, error) {
	a := &Archiver{
		cfg:    cfg,
		buffer: make(map[string][]Record),
		wg:     &sync.WaitGroup{},
		log:    logger.GetLogger(),
	}
	if cfg.Storage.S3.Enabled {
		ctx := context.Background()
		loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Storage.S3.Region)}
		if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Storage.S3.AccessKeyID,
					cfg.Storage.S3.SecretAccessKey,
					"",
				)))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		a.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
			}
			o.UsePathStyle = cfg.Storage.S3.PathStyle
		})
	}
	return a, nil
}

// Start launches the flush ticker.
func (a *Archiver) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("archiver already running")
	}
	a.running = true
	a.ctx = ctx
	a.flushTicker = time.NewTicker(a.cfg.Capture.FlushInterval)
	a.mu.Unlock()

	a.wg.Add(1)
	go a.flushLoop()

	a.log.WithComponent("capture").Info("archiver started")
	return nil
}

// Stop waits for the flush loop and flushes remaining data.
func (a *Archiver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.mu.Unlock()

	if a.flushTicker != nil {
		a.flushTicker.Stop()
	}
	a.wg.Wait()
	a.flushAll()
	a.log.WithComponent("capture").Info("archiver stopped")
}

// Add buffers one record. A full buffer is flushed inline.
func (a *Archiver) Add(rec Record) {
	key := rec.Exchange + "|" + rec.Endpoint
	a.mu.Lock()
	a.buffer[key] = append(a.buffer[key], rec)
	shouldFlush := len(a.buffer[key]) >= a.cfg.Capture.BatchSize
	a.mu.Unlock()
	if shouldFlush {
		a.flushBuffer(key)
	}
}

func (a *Archiver) flushLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.flushTicker.C:
			a.flushAll()
		}
	}
}

func (a *Archiver) flushAll() {
	a.mu.Lock()
	keys := make([]string, 0, len(a.buffer))
	for k := range a.buffer {
		keys = append(keys, k)
	}
	a.mu.Unlock()
	for _, k := range keys {
		a.flushBuffer(k)
	}
}

func (a *Archiver) flushBuffer(key string) {
	a.mu.Lock()
	records := a.buffer[key]
	if len(records) == 0 {
		a.mu.Unlock()
		return
	}
	delete(a.buffer, key)
	a.mu.Unlock()

	parts := strings.SplitN(key, "|", 2)
	a.writeBatch(parts[0], parts[1], records)
}

func (a *Archiver) writeBatch(exchange, endpoint string, records []Record) {
	data, err := a.createParquet(records)
	if err != nil {
		a.log.WithComponent("capture").WithError(err).Error("create parquet failed")
		return
	}
	key := a.batchKey(exchange, endpoint, time.Now().UTC())
	if a.s3Client != nil {
		if err := a.upload(key, data); err != nil {
			a.log.WithComponent("capture").WithError(err).Error("upload to s3 failed")
			return
		}
	} else {
		if err := a.writeLocal(key, data); err != nil {
			a.log.WithComponent("capture").WithError(err).Error("write local batch failed")
			return
		}
	}
	a.log.WithComponent("capture").WithFields(logger.Fields{
		"key":     key,
		"records": len(records),
		"bytes":   len(data),
	}).Info("capture batch written")
}

func (a *Archiver) createParquet(records []Record) ([]byte, error) {
	mw := newMemFileWriter()
	pw, err := writer.NewParquetWriter(mw, new(Record), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, rec := range records {
		if err := pw.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return mw.Bytes(), nil
}

func (a *Archiver) upload(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.Storage.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	_, err := a.s3Client.PutObject(a.ctx, input)
	return err
}

func (a *Archiver) writeLocal(key string, data []byte) error {
	path := filepath.Join(a.cfg.Capture.OutputDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (a *Archiver) batchKey(exchange, endpoint string, ts time.Time) string {
	parts := []string{
		fmt.Sprintf("exchange=%s", exchange),
		fmt.Sprintf("endpoint=%s", endpoint),
		fmt.Sprintf("year=%04d", ts.Year()),
		fmt.Sprintf("month=%02d", int(ts.Month())),
		fmt.Sprintf("day=%02d", ts.Day()),
	}
	filename := fmt.Sprintf("capture_%s_%s_%s.parquet", exchange, endpoint, uuid.New().String())
	return filepath.ToSlash(filepath.Join(append(parts, filename)...))
}
