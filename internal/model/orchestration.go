package model

// Squad orchestration strategies.
const (
	StrategyLeadReview     = "lead_review"
	StrategyParallelArbiter = "parallel_arbiter"
	StrategyRedTeam        = "red_team"
	StrategySingle         = "single"
)

// Role describes a named responsibility an Assignment binds to a Profile. It
// may reference a prompt file and link DocShots, Skills, and
// NegativeKnowledge entries used to brief the agent playing the role.
type Role struct {
	Namespace

	ID               string   `json:"id"`
	Name             string   `json:"name"`
	PromptPath       string   `json:"prompt_path,omitempty"`
	DocShotIDs       []string `json:"doc_shot_ids,omitempty"`
	SkillIDs         []string `json:"skill_ids,omitempty"`
	NegativeKnowledgeIDs []string `json:"negative_knowledge_ids,omitempty"`
	CreatedAt        int64    `json:"created_at"`
}

// Profile is a stored agent configuration, referenced by path.
type Profile struct {
	Namespace

	ID           string `json:"id"`
	Name         string `json:"name"`
	ConfigPath   string `json:"config_path"`
	CreatedAt    int64  `json:"created_at"`
}

// Assignment binds one Role to one Profile within a Squad, in execution
// order.
type Assignment struct {
	Namespace

	ID        string `json:"id"`
	SquadID   string `json:"squad_id"`
	RoleID    string `json:"role_id"`
	ProfileID string `json:"profile_id"`
	Order     int    `json:"order"`
	CreatedAt int64  `json:"created_at"`
}

// Squad is a named multi-agent orchestration unit belonging to a project.
type Squad struct {
	Namespace

	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Strategy    string       `json:"strategy"`
	Assignments []Assignment `json:"assignments,omitempty"`
	CreatedAt   int64        `json:"created_at"`
}
