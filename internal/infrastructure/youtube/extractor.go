// Package youtube extracts video transcripts through yt-dlp.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stephenmkbrady/universal-bot-plugins/internal/config"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/domain"
	"github.com/stephenmkbrady/universal-bot-plugins/internal/ports"
	"github.com/stephenmkbrady/universal-bot-plugins/pkg/executor"
)

// Extractor resolves a video's metadata and subtitle tracks with
// "yt-dlp -J" and downloads the best matching track over HTTP. Manual
// subtitles win over automatic captions, and languages are tried in the
// configured preference order.
type Extractor struct {
	ytdlpPath  string
	runner     executor.Executor
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor builds the extractor from configuration.
func NewExtractor(cfg config.SubtitleConfig, runner executor.Executor, logger *slog.Logger) *Extractor {
	path := cfg.YTDLPPath
	if path == "" {
		path = "yt-dlp"
	}
	if runner == nil {
		runner = executor.New()
	}
	return &Extractor{
		ytdlpPath:  path,
		runner:     runner,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// videoInfo is the slice of yt-dlp's JSON dump the extractor needs.
type videoInfo struct {
	Title             string                     `json:"title"`
	Subtitles         map[string][]subtitleTrack `json:"subtitles"`
	AutomaticCaptions map[string][]subtitleTrack `json:"automatic_captions"`
}

type subtitleTrack struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// Extract fetches and cleans the transcript for a video.
func (e *Extractor) Extract(ctx context.Context, videoID string, languages []string) (domain.Transcript, error) {
	if strings.TrimSpace(videoID) == "" {
		return domain.Transcript{}, fmt.Errorf("extract: empty video id: %w", domain.ErrInvalidInput)
	}

	out, err := e.runner.Execute(ctx, e.ytdlpPath, "-J", "--skip-download", "--", videoID)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Transcript{}, ctx.Err()
		}
		return domain.Transcript{}, fmt.Errorf("yt-dlp info for %s: %v: %w", videoID, err, domain.ErrExtractionFailed)
	}

	var info videoInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return domain.Transcript{}, fmt.Errorf("parse yt-dlp output for %s: %v: %w", videoID, err, domain.ErrExtractionFailed)
	}

	track, lang := pickTrack(info, languages)
	if track == nil {
		return domain.Transcript{}, fmt.Errorf("no subtitles for %s in %v: %w", videoID, languages, domain.ErrExtractionFailed)
	}

	e.debug("subtitle track selected", "video", videoID, "language", lang, "format", track.Ext)

	raw, err := e.download(ctx, track.URL)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Transcript{}, ctx.Err()
		}
		return domain.Transcript{}, fmt.Errorf("download subtitles for %s: %v: %w", videoID, err, domain.ErrExtractionFailed)
	}

	text, err := cleanSubtitles(raw)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("clean subtitles for %s: %v: %w", videoID, err, domain.ErrExtractionFailed)
	}

	return domain.Transcript{
		VideoID:  videoID,
		Title:    info.Title,
		Language: lang,
		Text:     text,
	}, nil
}

// pickTrack selects the first usable track: manual subtitles in language
// preference order, then automatic captions.
func pickTrack(info videoInfo, languages []string) (*subtitleTrack, string) {
	for _, source := range []map[string][]subtitleTrack{info.Subtitles, info.AutomaticCaptions} {
		for _, lang := range languages {
			if track := usableTrack(source[lang]); track != nil {
				return track, lang
			}
		}
	}
	return nil, ""
}

func usableTrack(tracks []subtitleTrack) *subtitleTrack {
	for i := range tracks {
		switch tracks[i].Ext {
		case "vtt", "srv3", "srv2", "srv1":
			if tracks[i].URL != "" {
				return &tracks[i]
			}
		}
	}
	return nil
}

func (e *Extractor) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subtitle fetch: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read subtitle body: %w", err)
	}
	return string(body), nil
}

var bareTimestamp = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{3}`)

// cleanSubtitles strips cue timing, headers, and markup from WEBVTT or
// srv content, returning plain transcript text. Inline tags like
// <c.colorE5E5E5> and HTML entities are resolved through an HTML parse.
func cleanSubtitles(content string) (string, error) {
	var kept []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "-->") || strings.HasPrefix(line, "WEBVTT") || isDigits(line) {
			continue
		}
		if strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") || strings.HasPrefix(line, "NOTE") {
			continue
		}
		line = bareTimestamp.ReplaceAllString(line, "")
		if line != "" {
			kept = append(kept, line)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.Join(kept, " ")))
	if err != nil {
		return "", fmt.Errorf("parse subtitle markup: %w", err)
	}

	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
