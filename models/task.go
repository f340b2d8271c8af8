package models

// TaskType is the category of work an AI request asks for
type TaskType string

const (
	TaskCodeGeneration  TaskType = "code_generation"
	TaskCodeExplanation TaskType = "code_explanation"
	TaskCodeRefactoring TaskType = "code_refactoring"
	TaskBugFixing       TaskType = "bug_fixing"
	TaskDocumentation   TaskType = "documentation"
	TaskTesting         TaskType = "testing"
	TaskOptimization    TaskType = "optimization"
	TaskGeneralChat     TaskType = "general_chat"
)

// AllTaskTypes lists every known task type in declaration order
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskCodeGeneration,
		TaskCodeExplanation,
		TaskCodeRefactoring,
		TaskBugFixing,
		TaskDocumentation,
		TaskTesting,
		TaskOptimization,
		TaskGeneralChat,
	}
}

// IsValid reports whether t is one of the known task types
func (t TaskType) IsValid() bool {
	switch t {
	case TaskCodeGeneration, TaskCodeExplanation, TaskCodeRefactoring, TaskBugFixing,
		TaskDocumentation, TaskTesting, TaskOptimization, TaskGeneralChat:
		return true
	}
	return false
}

// IsCodeTask reports whether the task works on source code
func (t TaskType) IsCodeTask() bool {
	return t != TaskGeneralChat && t != TaskDocumentation && t.IsValid()
}

// SystemFraming returns the system instruction sent ahead of the user content
func (t TaskType) SystemFraming() string {
	switch t {
	case TaskCodeGeneration:
		return "You are an expert software engineer. Write clean, correct, idiomatic code that satisfies the request. Return code in fenced blocks."
	case TaskCodeExplanation:
		return "You are an expert software engineer. Explain what the given code does, step by step, and call out non-obvious behaviour."
	case TaskCodeRefactoring:
		return "You are an expert software engineer. Refactor the given code for readability and maintainability without changing its behaviour."
	case TaskBugFixing:
		return "You are an expert debugger. Identify the root cause of the problem, explain it briefly, and provide the corrected code."
	case TaskDocumentation:
		return "You are a technical writer. Produce clear, accurate documentation for the given code or topic."
	case TaskTesting:
		return "You are an expert in software testing. Write thorough tests covering normal paths and edge cases."
	case TaskOptimization:
		return "You are a performance engineer. Optimize the given code and explain the trade-offs of each change."
	default:
		return "You are a helpful assistant for software developers."
	}
}
