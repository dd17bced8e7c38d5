package api

import (
	"time"

	"github.com/mcdev12/studyroom/go/internal/models"
)

const (
	// StudyServiceName is the fully-qualified name of the query service.
	StudyServiceName = "study.v1.StudyService"

	GetSessionProcedure     = "/" + StudyServiceName + "/GetSession"
	GetStandingsProcedure   = "/" + StudyServiceName + "/GetStandings"
	GetSolvingInfoProcedure = "/" + StudyServiceName + "/GetSolvingInfo"
)

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

type GetSessionResponse struct {
	SessionID        string                 `json:"session_id"`
	State            models.SessionState    `json:"state"`
	Generation       uint64                 `json:"generation"`
	StartedAt        time.Time              `json:"started_at"`
	EndedAt          *time.Time             `json:"ended_at,omitempty"`
	DurationSeconds  int                    `json:"duration_seconds"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Problems         []models.ProblemStatus `json:"problems"`
}

type GetStandingsRequest struct {
	SessionID string `json:"session_id"`
}

type GetStandingsResponse struct {
	SessionID  string                  `json:"session_id"`
	State      models.SessionState     `json:"state"`
	Generation uint64                  `json:"generation"`
	Standings  []models.ProgressRecord `json:"standings"`
}

type GetSolvingInfoRequest struct {
	ParticipantID string `json:"participant_id"`
}

type GetSolvingInfoResponse struct {
	Problems         []models.ProblemStatus `json:"problems"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	AllSolved        bool                   `json:"all_solved"`
}
