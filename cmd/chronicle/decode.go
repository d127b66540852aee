package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chronicle/internal/config"
	"chronicle/internal/decoder"
	"chronicle/internal/model"
	"chronicle/internal/projection"
)

var errNoHandler = errors.New("no handler registered for topic0")

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := newJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := newJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("skip_unknown", cfg.SkipUnknown),
	)

	stats, err := decodeStream(inputFile, projection.DefaultRegistry(), cfg.SkipUnknown, outWriter, errWriter)
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", stats.total),
		zap.Int("decoded", stats.decoded),
		zap.Int("skipped", stats.skipped),
		zap.Int("failed", stats.failed),
	)
	return nil
}

type decodeStats struct {
	total, decoded, skipped, failed int
}

type recordWriter interface {
	Write(value interface{}) error
}

// decodeStream decodes every JSONL log record read from in. Failures are
// written to errs and do not stop the stream.
func decodeStream(in io.Reader, registry *projection.Registry, skipUnknown bool, out, errs recordWriter) (decodeStats, error) {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var stats decodeStats
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.failed++
			writeDecodeError(errs, model.DecodeFailure{Error: err.Error()})
			continue
		}

		decoded, err := decodeRecord(registry, record)
		switch {
		case errors.Is(err, errNoHandler) && skipUnknown:
			stats.skipped++
			continue
		case err != nil:
			stats.failed++
			writeDecodeError(errs, decodeErrorFromRecord(record, err))
			continue
		}

		if err := out.Write(decoded); err != nil {
			return stats, err
		}
		stats.decoded++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}
	return stats, nil
}

// decodeRecord decodes one record with the schema of the handler registered
// for its topic0.
func decodeRecord(registry *projection.Registry, record model.LogRecord) (model.DecodedLog, error) {
	ev, err := record.RawEvent()
	if err != nil {
		return model.DecodedLog{}, err
	}
	if len(ev.Topics) == 0 {
		return model.DecodedLog{}, fmt.Errorf("missing topic0")
	}
	handler, ok := registry.Lookup(ev.Signature)
	if !ok {
		return model.DecodedLog{}, errNoHandler
	}

	decoded, err := decoder.Decode(ev.Topics, ev.Data, handler.Schema())
	if err != nil {
		return model.DecodedLog{}, err
	}

	return model.DecodedLog{
		Event:       handler.Name(),
		BlockNumber: ev.BlockNumber,
		TxHash:      ev.TxHash.Hex(),
		LogIndex:    ev.LogIndex,
		Address:     ev.Address.Hex(),
		Timestamp:   ev.BlockTimestamp,
		Indexed:     jsonValues(decoded.Indexed),
		Body:        jsonValues(decoded.Body),
	}, nil
}

func jsonValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = decoder.JSONValue(v)
	}
	return out
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string, appendMode bool) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(value interface{}) error {
	line, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.writer.Write(line); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}

func (w *jsonlWriter) Close() error {
	if w == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeFailure {
	topic0 := ""
	if len(record.Topics) > 0 {
		topic0 = record.Topics[0]
	}

	return model.DecodeFailure{
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      topic0,
		Error:       err.Error(),
	}
}

func writeDecodeError(writer recordWriter, failure model.DecodeFailure) {
	if writer == nil {
		return
	}
	_ = writer.Write(failure)
}
