package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docchat/internal/config"
)

// NewParser returns the parser selected by cfg.Parser.
func NewParser(cfg config.Config, creds config.Credentials, logger *slog.Logger) (Parser, error) {
	switch strings.ToLower(cfg.Parser) {
	case "llamaparse":
		return NewLlamaParse(creds.ParseKey, cfg.LlamaParseBaseURL, time.Duration(cfg.ParsePollMillis)*time.Millisecond, logger), nil
	case "local":
		return NewLocal(), nil
	default:
		return nil, fmt.Errorf("unsupported parser: %s", cfg.Parser)
	}
}
