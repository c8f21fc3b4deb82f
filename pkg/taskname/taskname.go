package taskname

const (
	// Daily quest tasks
	QuestIssueDaily = "quest:issue:daily"
	QuestSweep      = "quest:sweep"
)
