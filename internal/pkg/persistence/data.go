package persistence

import (
	"database/sql"
	"time"

	"github.com/callqa/callqa/internal/pkg/api"
)

type (

	// CallRecord row in calls table, one per uploaded recording
	CallRecord struct {
		ID            string
		FileName      string
		ObjectKey     string
		StorageURL    string
		Status        string
		Transcription sql.NullString
		Evaluation    *api.RubricScore
		Error         sql.NullString
		AgentID       sql.NullString
		Email         sql.NullString
		Created       time.Time
		Updated       time.Time
	}

	// Agent roster row in agents table
	Agent struct {
		ID      string
		Name    string
		Email   string
		Created time.Time
		Updated time.Time
	}
)
