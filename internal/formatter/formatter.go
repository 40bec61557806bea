// package formatter exports resolved playlists and todo checklists to files (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// Format names accepted by [ParseFormat].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatJSON     = "json"
)

// ParseFormat normalizes a user supplied format name. "md" and "text" are accepted as aliases.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (use csv, markdown, txt or json)", shared.ErrInvalidArgument, s)
	}
}

// ExportToCSV converts a Playlist to CSV format with columns: Position, Title, URL, Duration, Uploader, Thumbnail
func ExportToCSV(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "URL", "Duration", "Uploader", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, video := range playlist.Videos {
		record := []string{
			strconv.Itoa(i + 1),
			video.Title,
			shared.WatchURL(video.URL),
			strconv.Itoa(video.Duration),
			video.Uploader,
			video.Thumbnail,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Playlist to Markdown format with optional cover image
func ExportToMarkdown(playlist *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if playlist.Uploader != "" {
		fmt.Fprintf(&buf, "**Uploader**: %s\n\n", playlist.Uploader)
	}
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}

	fmt.Fprintf(&buf, "**Videos**: %d\n", len(playlist.Videos))
	fmt.Fprintf(&buf, "**Total Duration**: %s\n\n", shared.FormatDuration(playlist.TotalDuration()))

	buf.WriteString("## Videos\n\n")
	for i, video := range playlist.Videos {
		fmt.Fprintf(&buf, "%d. [%s](%s)%s [%s]\n",
			i+1, video.Title, shared.WatchURL(video.URL), byline(video.Uploader), shared.FormatDuration(video.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Playlist to plain text format
func ExportToText(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Title)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "Videos: %d (%s)\n\n", len(playlist.Videos), shared.FormatDuration(playlist.TotalDuration()))

	for i, video := range playlist.Videos {
		fmt.Fprintf(&buf, "%d. %s [%s] %s\n", i+1, video.Title, shared.FormatDuration(video.Duration), shared.WatchURL(video.URL))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the full playlist, videos included.
func ExportToJSON(playlist *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// PlaylistMetadata is the playlist without its videos.
type PlaylistMetadata struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Uploader      string `json:"uploader"`
	Description   string `json:"description"`
	VideoCount    int    `json:"video_count"`
	TotalDuration int    `json:"total_duration"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without videos)
func ToMetadataJSON(playlist *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(PlaylistMetadata{
		ID:            playlist.ID,
		Title:         playlist.Title,
		Uploader:      playlist.Uploader,
		Description:   playlist.Description,
		VideoCount:    len(playlist.Videos),
		TotalDuration: playlist.TotalDuration(),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	VideosFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_videos.csv and {base}_metadata.json
func WriteCSVExport(playlist *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = playlist.ID
	}

	csvData, err := ExportToCSV(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	videosFile := baseFilepath + "_videos.csv"
	if err := os.WriteFile(videosFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		VideosFile:   videosFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID.
// The cover is the first video's thumbnail; a failed download only drops the image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(playlist *models.Playlist, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL := coverURL(playlist); imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(playlist, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_videos.txt as the filename.
func WriteTextExport(playlist *models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_videos.txt", playlist.ID)
	}

	textData, err := ExportToText(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the full playlist as JSON. Defaults to {playlist.ID}.json.
func WriteJSONExport(playlist *models.Playlist, path string) (string, error) {
	if path == "" {
		path = playlist.ID + ".json"
	}

	data, err := ExportToJSON(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}

// WritePlaylist writes a playlist in the given format under dir and returns the created files.
func WritePlaylist(playlist *models.Playlist, format, dir string) ([]string, error) {
	base := filepath.Join(dir, safeName(playlist.ID))

	switch format {
	case FormatCSV:
		res, err := WriteCSVExport(playlist, base)
		if err != nil {
			return nil, err
		}
		return []string{res.VideosFile, res.MetadataFile}, nil
	case FormatMarkdown:
		res, err := WriteMarkdownExport(playlist, base)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case FormatText:
		path, err := WriteTextExport(playlist, base+"_videos.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case FormatJSON:
		path, err := WriteJSONExport(playlist, base+".json")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}

func coverURL(playlist *models.Playlist) string {
	for _, v := range playlist.Videos {
		if v.Thumbnail != "" {
			return v.Thumbnail
		}
	}
	return ""
}

func byline(uploader string) string {
	if uploader == "" {
		return ""
	}
	return " by " + uploader
}

// safeName keeps playlist ids usable as file names.
func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "playlist"
	}
	return s
}
