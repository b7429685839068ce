package template

// Template is a named message template with a declared variable list.
type Template struct {
	// ID is the template identifier; dispatchers key templates by
	// notification kind.
	ID string

	// Subject is the subject-line template.
	Subject string

	// Body is the body template.
	Body string

	// Required lists variables the template expects. Missing required
	// variables render blank with a logged warning.
	Required []string
}

// BuiltinTemplates returns the default template set, one per notification
// kind.
func BuiltinTemplates() []Template {
	return []Template{
		{
			ID:       "task-reminder",
			Subject:  "Reminder: {{taskName}}",
			Body:     "Hi {{userName}}, the task \"{{taskName}}\"{{#if projectName}} in {{projectName}}{{/if}} is due {{dueDate}}.",
			Required: []string{"userName", "taskName", "dueDate"},
		},
		{
			ID:       "deadline-warning",
			Subject:  "Deadline approaching: {{taskName}}",
			Body:     "Heads up {{userName}}: \"{{taskName}}\" is due in {{hoursLeft}} hours.",
			Required: []string{"userName", "taskName", "hoursLeft"},
		},
		{
			ID:       "escalation",
			Subject:  "Escalation: {{taskName}}",
			Body:     "{{userName}}, the task \"{{taskName}}\" has been escalated{{#if reason}}: {{reason}}{{/if}}. Immediate attention required.",
			Required: []string{"userName", "taskName"},
		},
		{
			ID:       "achievement",
			Subject:  "Nice work, {{userName}}!",
			Body:     "You completed {{completedCount}} tasks this week.{{#if streak}} That's a {{streak}}-day streak.{{/if}}",
			Required: []string{"userName", "completedCount"},
		},
		{
			ID:       "insight",
			Subject:  "Project insight: {{projectName}}",
			Body:     "{{summary}}{{#if highlights}}\nHighlights:\n{{#each highlights}}- {{.}}\n{{/each}}{{/if}}",
			Required: []string{"projectName", "summary"},
		},
		{
			ID:       "standup",
			Subject:  "Standup summary for {{teamName}}",
			Body:     "{{#each updates}}- {{.}}\n{{/each}}{{#if blockers}}Blockers:\n{{#each blockers}}- {{.}}\n{{/each}}{{/if}}",
			Required: []string{"teamName", "updates"},
		},
	}
}
