package api

import "time"

// Status values a consultation can be in
const (
	StatusPending    = "pending"
	StatusActive     = "active"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Chat message senders
const (
	SenderPatient = "patient"
	SenderDoctor  = "doctor"
	SenderAI      = "ai"
)

// Chat message types
const (
	MessageTypeText  = "text"
	MessageTypeFile  = "file"
	MessageTypeAudio = "audio"
)

// Consultation represents one patient-reported episode as stored by the
// backend. Before submission a consultation exists only as draft state in
// the intake controller and has no ID.
type Consultation struct {
	ID              int64            `json:"id"`
	Status          string           `json:"status"`
	Transcript      string           `json:"transcript,omitempty"`
	Language        string           `json:"language"`
	AudioURL        string           `json:"audio_url,omitempty"`
	FileAttachments []FileAttachment `json:"file_attachments,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ChatMessage is one exchange turn. Immutable once created; ordering is by
// timestamp ascending.
type ChatMessage struct {
	ID             int64     `json:"id"`
	ConsultationID int64     `json:"consultation_id"`
	Sender         string    `json:"sender"`
	Message        string    `json:"message"`
	MessageType    string    `json:"message_type"`
	Timestamp      time.Time `json:"timestamp"`
}

// FileAttachment is a file stored against a consultation
type FileAttachment struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// MedicalEntities groups the entities the AI pulled out of a conversation
type MedicalEntities struct {
	Symptoms    []string `json:"symptoms"`
	Diagnoses   []string `json:"diagnoses"`
	Medications []string `json:"medications"`
}

// Summary is the AI-generated visit summary for a consultation. Absent until
// explicitly generated; regenerating replaces the prior one. It is not
// invalidated when new chat messages arrive - GeneratedAt is the caller's
// only staleness signal.
type Summary struct {
	ConsultationID  int64           `json:"consultation_id"`
	SummaryText     string          `json:"summary_text"`
	KeyPoints       []string        `json:"key_points"`
	MedicalEntities MedicalEntities `json:"medical_entities"`
	Sentiment       string          `json:"sentiment"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// TranscriptionResult is returned by the transcription endpoints
type TranscriptionResult struct {
	Transcript       string `json:"transcript"`
	DetectedLanguage string `json:"detected_language,omitempty"`
}
