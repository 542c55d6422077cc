// Package server is the HTTP boundary of the application. Handlers parse
// and validate requests, then either read the stores directly or submit
// tasks to the pipeline; every mutation goes through the pipeline so the
// handlers never write to a store themselves.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ledgercat/internal/config"
	"ledgercat/internal/ledger"
	"ledgercat/internal/logging"
	"ledgercat/internal/models"
	"ledgercat/internal/pipeline"
	"ledgercat/internal/tasks"
	"ledgercat/internal/taxonomy"
)

// Deps are the collaborators the server hands to its task submissions.
type Deps struct {
	Config   *config.Config
	Ledger   *ledger.Store
	Taxonomy *taxonomy.Store
	Pipeline *pipeline.Pipeline
	Tasks    *tasks.Factory
	Log      logging.Logger
}

// Server serves the ledger HTTP API.
type Server struct {
	cfg      *config.Config
	ledger   *ledger.Store
	taxonomy *taxonomy.Store
	pipe     *pipeline.Pipeline
	tasks    *tasks.Factory
	log      logging.Logger
}

// New creates a server over the given collaborators.
func New(d Deps) *Server {
	return &Server{
		cfg:      d.Config,
		ledger:   d.Ledger,
		taxonomy: d.Taxonomy,
		pipe:     d.Pipeline,
		tasks:    d.Tasks,
		log:      d.Log,
	}
}

// Handler builds the route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /transactions", s.handleTransactions)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /categories", s.handleGetCategories)
	mux.HandleFunc("POST /categories", s.handleEditCategories)
	mux.HandleFunc("POST /train", s.handleTrain)
	mux.HandleFunc("GET /deadletters", s.handleDeadLetters)

	var h http.Handler = mux
	h = Recovery(s.log)(h)
	h = CORS(s.cfg.Server.AllowedOrigin)(h)
	h = RequestLogger(s.log)(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "ledgercat",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	columns, rows, err := s.ledger.ReadAll()
	if err != nil {
		s.log.WithError(err).Error("Failed to read ledger")
		WriteError(w, http.StatusInternalServerError, "Failed to read transactions")
		return
	}

	if columns == nil {
		columns = models.Columns
	}
	if rows == nil {
		rows = []models.Row{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"columns": columns,
		"data":    rows,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum size is %dMB.", s.cfg.Server.MaxUploadMB))
			return
		}
		WriteError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		WriteError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		WriteError(w, http.StatusBadRequest, "Invalid file type. Only CSV files are allowed.")
		return
	}

	rows, rowErrs, err := ledger.ParseRows(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The append runs through the pipeline so it serializes with every
	// other ledger mutation; the handler waits for its result.
	ingest := s.tasks.Ingest(rows)
	if err := s.pipe.Run(r.Context(), ingest); err != nil {
		s.writePipelineError(w, err, "Failed to ingest rows")
		return
	}

	// Freshly added rows get classified in the background.
	if len(ingest.Result.Added) > 0 {
		if _, err := s.pipe.Enqueue(s.tasks.Classify(ingest.Result.Added)); err != nil {
			s.log.WithError(err).Error("Failed to enqueue classification")
		}
	}

	s.log.WithFields(
		logging.F("file", header.Filename),
		logging.F("added", len(ingest.Result.Added)),
		logging.F("duplicates", ingest.Result.Duplicates),
	).Info("File processed successfully")

	preview := rows
	if limit := s.cfg.Server.PreviewRows; limit > 0 && len(preview) > limit {
		preview = preview[:limit]
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"message":           "File processed successfully",
		"original_filename": header.Filename,
		"upload_time":       time.Now().Format(time.RFC3339),
		"csv_data": map[string]interface{}{
			"row_count":  len(rows),
			"columns":    models.Columns,
			"data":       preview,
			"row_errors": rowErrs,
		},
		"master_csv": ingest.Result,
	})
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	tax, err := s.taxonomy.Load()
	if err != nil {
		s.log.WithError(err).Error("Failed to load taxonomy")
		WriteError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": tax,
	})
}

func (s *Server) handleEditCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Edits []models.TaxonomyEdit `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Edits) == 0 {
		WriteError(w, http.StatusBadRequest, "No edits provided")
		return
	}
	for _, edit := range req.Edits {
		switch edit.Type {
		case models.EditUpdate, models.EditDelete, models.EditAdd:
		default:
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown edit type: %q", edit.Type))
			return
		}
	}

	id, err := s.pipe.Enqueue(s.tasks.TaxonomyEdit(req.Edits))
	if err != nil {
		s.writePipelineError(w, err, "Failed to enqueue taxonomy edit")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": id,
		"status":  "queued",
		"edits":   len(req.Edits),
	})
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	id, err := s.pipe.Enqueue(s.tasks.Train())
	if err != nil {
		s.writePipelineError(w, err, "Failed to enqueue training")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": id,
		"status":  "queued",
	})
}

func (s *Server) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters := s.pipe.DeadLetters()
	if letters == nil {
		letters = []pipeline.DeadLetter{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dead_letters": letters,
		"count":        len(letters),
	})
}

func (s *Server) writePipelineError(w http.ResponseWriter, err error, msg string) {
	s.log.WithError(err).Error(msg)
	switch {
	case errors.Is(err, pipeline.ErrQueueFull):
		WriteError(w, http.StatusServiceUnavailable, "Task queue is full, try again later")
	case errors.Is(err, pipeline.ErrStopped):
		WriteError(w, http.StatusServiceUnavailable, "Server is shutting down")
	default:
		WriteError(w, http.StatusInternalServerError, msg)
	}
}
