package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vzdr/docuquery-rag/internal/parser"
	"github.com/vzdr/docuquery-rag/internal/rag"
	"github.com/vzdr/docuquery-rag/internal/retry"
	"github.com/vzdr/docuquery-rag/internal/vector"
	"github.com/vzdr/docuquery-rag/pkg/ragerr"
)

const maxUploadMemory = 32 << 20 // 32MiB held in memory before spilling to temp files.

// router assembles the §6 HTTP surface behind the middleware chain.
// Grounded on bbiangul-go-reason/cmd/server/main.go's method-prefixed
// ServeMux routes and ordered middleware composition.
func (s *server) router() http.Handler {
	mux := http.NewServeMux()

	prefix := s.config().APIPrefix
	if prefix == "" {
		prefix = "/api"
	}

	mux.HandleFunc("POST "+prefix+"/parser/parse", s.handleParserParse)
	mux.HandleFunc("GET "+prefix+"/parser/supported", s.handleParserSupported)
	mux.HandleFunc("POST "+prefix+"/parser/validate", s.handleParserValidate)
	mux.HandleFunc("POST "+prefix+"/query", s.handleQuery)
	mux.HandleFunc("GET "+prefix+"/query/models", s.handleQueryModels)
	mux.HandleFunc("GET "+prefix+"/query/settings", s.handleQuerySettings)
	mux.HandleFunc("GET "+prefix+"/query/cache/stats", s.handleQueryCacheStats)
	mux.HandleFunc("DELETE "+prefix+"/query/cache", s.handleQueryCacheClear)
	mux.HandleFunc("GET "+prefix+"/query/health", s.handleQueryHealth)
	mux.HandleFunc("POST "+prefix+"/ai/query", s.handleAIQuery)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(s.limiter, handler)
	handler = corsMiddleware(s.config().CORSOrigins(), handler)
	handler = logMiddleware(handler)
	handler = recoveryMiddleware(handler)
	return handler
}

// --- /parser/* ---

type parseResultBody struct {
	Text           string                 `json:"text"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Chunks         []parser.ChunkOutline  `json:"chunks,omitempty"`
	StructuredData interface{}            `json:"structuredData,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
}

type parseResponseBody struct {
	Success  bool             `json:"success"`
	FileType string           `json:"fileType"`
	FileName string           `json:"fileName"`
	FileSize int               `json:"fileSize"`
	Result   parseResultBody  `json:"result"`
}

func (s *server) handleParserParse(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := readUploadedFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}

	opts := parser.DefaultOptions()
	opts.EnableChunking = r.FormValue("enableChunking") == "true"
	if v := r.FormValue("chunkSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.ChunkSize = n
		}
	}
	if v := r.FormValue("chunkOverlap"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.ChunkOverlap = n
		}
	}
	opts.ExtractMetadata = r.FormValue("extractMetadata") != "false"
	opts.Encoding = r.FormValue("encoding")
	if csvOpts := r.FormValue("csvOptions"); csvOpts != "" {
		var c parser.CSVOptions
		if err := json.Unmarshal([]byte(csvOpts), &c); err == nil {
			opts.CSV = c
		}
	}

	result, err := s.registry.Parse(data, fileName, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, parseResponseBody{
		Success:  true,
		FileType: string(result.FileType),
		FileName: fileName,
		FileSize: len(data),
		Result: parseResultBody{
			Text:           result.Text,
			Metadata:       result.Metadata,
			Chunks:         result.Chunks,
			StructuredData: result.StructuredData,
			Warnings:       result.Warnings,
		},
	})
}

type supportedFormat struct {
	Extension   string   `json:"extension"`
	MimeType    string   `json:"mimeType"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
}

func (s *server) handleParserSupported(w http.ResponseWriter, r *http.Request) {
	formats := []supportedFormat{
		{Extension: ".txt", MimeType: "text/plain", Description: "Plain text", Features: []string{"encoding-detection", "chunking"}},
		{Extension: ".md", MimeType: "text/markdown", Description: "Markdown", Features: []string{"outline-extraction", "chunking"}},
		{Extension: ".csv", MimeType: "text/csv", Description: "Comma-separated values", Features: []string{"structured-data", "dynamic-typing"}},
		{Extension: ".pdf", MimeType: "application/pdf", Description: "PDF document", Features: []string{"text-extraction", "metadata"}},
		{Extension: ".docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Description: "Word document", Features: []string{"text-extraction", "metadata"}},
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats":          formats,
		"maxFileSizeBytes": parser.DefaultOptions().MaxFileSizeBytes,
	})
}

type validateResponseBody struct {
	Valid    bool   `json:"valid"`
	FileName string `json:"fileName"`
	FileSize int    `json:"fileSize"`
	FileType string `json:"fileType,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *server) handleParserValidate(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := readUploadedFile(r, "file")
	if err != nil {
		writeError(w, err)
		return
	}

	opts := parser.DefaultOptions()
	if err := s.registry.Validate(data, fileName, opts); err != nil {
		rerr, _ := ragerr.As(err)
		msg := err.Error()
		if rerr != nil {
			msg = rerr.Message
		}
		writeJSON(w, http.StatusOK, validateResponseBody{
			Valid: false, FileName: fileName, FileSize: len(data), Error: msg,
		})
		return
	}

	detection, _ := parser.Detect(data, fileName)
	writeJSON(w, http.StatusOK, validateResponseBody{
		Valid: true, FileName: fileName, FileSize: len(data), FileType: string(detection.Format),
	})
}

// --- /query ---

type querySettingsBody struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type queryRequestBody struct {
	Question      string            `json:"question"`
	ContextFiles  []string          `json:"contextFiles"`
	InlineContext string            `json:"inlineContext"`
	Settings      querySettingsBody `json:"settings"`
}

type sourceBody struct {
	File       string  `json:"file"`
	Chunk      int     `json:"chunk"`
	Confidence float32 `json:"confidence,omitempty"`
	Location   string  `json:"location,omitempty"`
}

type ragMetricsBody struct {
	Enabled bool               `json:"enabled"`
	Metrics rag.RetrievalMetrics `json:"metrics"`
	Sources []sourceBody       `json:"sources"`
}

type queryResponseBody struct {
	Answer       string         `json:"answer"`
	Sources      []sourceBody   `json:"sources"`
	Model        string         `json:"model"`
	TokensUsed   int            `json:"tokensUsed"`
	Cached       bool           `json:"cached"`
	ResponseTime int64          `json:"responseTime"`
	FinishReason string         `json:"finishReason,omitempty"`
	RAG          ragMetricsBody `json:"rag"`
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req queryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, ragerr.ValidationError("body", "invalid JSON body"))
		return
	}
	if err := validateQueryRequest(req); err != nil {
		writeError(w, err)
		return
	}

	settings := rag.ModelSettings{Model: req.Settings.Model, Temperature: req.Settings.Temperature, MaxTokens: req.Settings.MaxTokens}
	cacheKey := rag.GenerateCacheKey(req.Question, req.ContextFiles, req.InlineContext, settings)

	if entry, ok := s.cache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, toQueryResponseBody(entry, true, time.Since(start)))
		return
	}

	resp, ragEnabled, err := s.answer(r.Context(), req.Question, req.ContextFiles, req.InlineContext, settings)
	if err != nil {
		writeError(w, err)
		return
	}
	_ = ragEnabled

	s.cache.Set(cacheKey, *resp, s.cache.DefaultTTL())
	writeJSON(w, http.StatusOK, toQueryResponseBody(*resp, false, time.Since(start)))
}

func validateQueryRequest(req queryRequestBody) error {
	if len(req.Question) == 0 || len(req.Question) > 1000 {
		return ragerr.ValidationError("question", "question must be 1..1000 characters")
	}
	if len(req.ContextFiles) > 10 {
		return ragerr.ValidationError("contextFiles", "at most 10 context files are allowed")
	}
	if len(req.InlineContext) > 5000 {
		return ragerr.ValidationError("inlineContext", "inlineContext must be at most 5000 characters")
	}
	if req.Settings.Temperature < 0 || req.Settings.Temperature > 1 {
		return ragerr.ValidationError("settings.temperature", "temperature must be in [0,1]")
	}
	if req.Settings.MaxTokens != 0 && (req.Settings.MaxTokens < 100 || req.Settings.MaxTokens > 4000) {
		return ragerr.ValidationError("settings.maxTokens", "maxTokens must be in [100,4000]")
	}
	return nil
}

// answer runs the RAG retrieval step (falling back to a non-RAG
// completion when NO_DOCUMENTS is raised, per §7's documented fallback)
// and then generates the final answer through the LLM client, wrapped in
// the Retry Engine.
func (s *server) answer(ctx context.Context, question string, contextFiles []string, inlineContext string, settings rag.ModelSettings) (*rag.ResponseEntry, bool, error) {
	queryResp, err := s.pipeline.Query(ctx, rag.QueryRequest{Text: question, InlineContext: inlineContext, DocumentIDFilter: contextFiles}, nil)
	ragEnabled := true
	contextStr := inlineContext
	var sources []vector.RetrievedChunk

	if err != nil {
		if ragerr.CodeOf(err) != ragerr.CodeNoDocuments {
			return nil, false, err
		}
		ragEnabled = false
	} else {
		contextStr = queryResp.Context
		sources = queryResp.Sources
	}

	systemPrompt := "You are a document-grounded assistant. Answer using only the provided context; say so if the context is insufficient."
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextStr, question)

	var completion *rag.CompletionResponse
	retryErr := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context) error {
		resp, err := s.llm.Complete(ctx, rag.CompletionRequest{
			System:      systemPrompt,
			User:        userPrompt,
			Temperature: settings.Temperature,
			MaxTokens:   settings.MaxTokens,
			Model:       settings.Model,
		})
		if err != nil {
			return err
		}
		completion = resp
		return nil
	})
	if retryErr != nil {
		return nil, ragEnabled, retryErr
	}

	entry := rag.ResponseEntry{
		Answer:       completion.Text,
		Sources:      sources,
		Model:        settings.Model,
		TokensUsed:   completion.Usage.TotalTokens,
		FinishReason: completion.FinishReason,
	}
	return &entry, ragEnabled, nil
}

func toQueryResponseBody(entry rag.ResponseEntry, cached bool, elapsed time.Duration) queryResponseBody {
	sources := make([]sourceBody, len(entry.Sources))
	for i, src := range entry.Sources {
		sources[i] = sourceBody{
			File:       src.Chunk.Source.FileName,
			Chunk:      src.Chunk.Source.ChunkIndex,
			Confidence: src.Score,
		}
	}
	return queryResponseBody{
		Answer:       entry.Answer,
		Sources:      sources,
		Model:        entry.Model,
		TokensUsed:   entry.TokensUsed,
		Cached:       cached,
		ResponseTime: elapsed.Milliseconds(),
		FinishReason: entry.FinishReason,
		RAG: ragMetricsBody{
			Enabled: len(sources) > 0,
			Sources: sources,
		},
	}
}

func (s *server) handleQueryModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":  []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo"},
		"default": s.config().DefaultAIModel,
	})
}

func (s *server) handleQuerySettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.config()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"defaults": querySettingsBody{
			Model:       cfg.DefaultAIModel,
			Temperature: float32(cfg.DefaultAITemperature),
			MaxTokens:   cfg.DefaultAIMaxTokens,
		},
		"limits": map[string]interface{}{
			"questionMaxLength": 1000,
			"contextFilesMax":   10,
			"inlineContextMax":  5000,
			"temperatureRange":  []float32{0, 1},
			"maxTokensRange":    []int{100, 4000},
		},
	})
}

func (s *server) handleQueryCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *server) handleQueryCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) handleQueryHealth(w http.ResponseWriter, r *http.Request) {
	llmStatus := "ok"
	if s.config().OpenAIAPIKey == "" {
		llmStatus = "unconfigured"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"services": map[string]string{
			"llm":   llmStatus,
			"cache": "ok",
		},
	})
}

// --- /ai/query ---

type aiQueryResponseBody struct {
	Response       string         `json:"response"`
	Model          string         `json:"model"`
	Usage          rag.Usage      `json:"usage"`
	ProcessingTime int64          `json:"processingTime"`
	RAG            ragMetricsBody `json:"rag"`
}

func (s *server) handleAIQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, ragerr.ValidationError("body", "invalid multipart form"))
		return
	}

	var files []rag.IngestFile
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				writeError(w, ragerr.ValidationError("files", "unable to read uploaded file"))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, ragerr.ValidationError("files", "unable to read uploaded file"))
				return
			}
			files = append(files, rag.IngestFile{FileName: fh.Filename, Data: data})
		}
	}

	selectedText := r.FormValue("selectedText")
	inlineContext := r.FormValue("inlineContext")

	var settings querySettingsBody
	if raw := r.FormValue("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			writeError(w, ragerr.ValidationError("settings", "settings must be valid JSON"))
			return
		}
	}

	question := selectedText
	if question == "" {
		question = inlineContext
	}
	if question == "" {
		writeError(w, ragerr.ValidationError("selectedText", "selectedText or inlineContext is required"))
		return
	}

	modelSettings := rag.ModelSettings{Model: settings.Model, Temperature: settings.Temperature, MaxTokens: settings.MaxTokens}

	// §5: each request gets its own pipeline instance over the uploaded
	// files, independent of the server's long-lived index.
	pipelineCfg := rag.DefaultPipelineConfig()
	reqPipeline, err := rag.NewPipeline(s.embedder, s.processor, pipelineCfg)
	if err != nil {
		writeError(w, err)
		return
	}

	ragEnabled := len(files) > 0
	contextStr := inlineContext
	var sources []vector.RetrievedChunk

	if ragEnabled {
		queryResp, err := reqPipeline.Query(r.Context(), rag.QueryRequest{Text: question, InlineContext: inlineContext}, files)
		if err != nil {
			writeError(w, err)
			return
		}
		contextStr = queryResp.Context
		sources = queryResp.Sources
	}

	systemPrompt := "You are a document-grounded assistant. Answer using only the provided context; say so if the context is insufficient."
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextStr, question)

	var completion *rag.CompletionResponse
	retryErr := retry.Do(r.Context(), retry.DefaultConfig(), func(ctx context.Context) error {
		resp, err := s.llm.Complete(ctx, rag.CompletionRequest{
			System:      systemPrompt,
			User:        userPrompt,
			Temperature: modelSettings.Temperature,
			MaxTokens:   modelSettings.MaxTokens,
			Model:       modelSettings.Model,
		})
		if err != nil {
			return err
		}
		completion = resp
		return nil
	})
	if retryErr != nil {
		writeError(w, retryErr)
		return
	}

	sourceBodies := make([]sourceBody, len(sources))
	for i, src := range sources {
		sourceBodies[i] = sourceBody{File: src.Chunk.Source.FileName, Chunk: src.Chunk.Source.ChunkIndex, Confidence: src.Score}
	}

	writeJSON(w, http.StatusOK, aiQueryResponseBody{
		Response:       completion.Text,
		Model:          modelSettings.Model,
		Usage:          completion.Usage,
		ProcessingTime: time.Since(start).Milliseconds(),
		RAG: ragMetricsBody{
			Enabled: ragEnabled,
			Sources: sourceBodies,
		},
	})
}

// readUploadedFile reads the named multipart field into memory.
func readUploadedFile(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, "", ragerr.ValidationError(field, "invalid multipart form")
	}
	f, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", ragerr.ValidationError(field, "file is required")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", ragerr.ValidationError(field, "unable to read uploaded file")
	}
	return data, header.Filename, nil
}
