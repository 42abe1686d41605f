package llm

// BuildScheduleJSONSchema returns the response contract as a JSON-Schema map.
// Optional fields accept null; unknown properties are tolerated since the
// model sometimes adds commentary keys.
func BuildScheduleJSONSchema() map[string]any {
	scheduleItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"phase":         map[string]any{"type": "string"},
			"schedule_type": map[string]any{"type": "string"},
			"start_date":    nullable("string"),
			"end_date":      nullable("string"),
			"description":   nullable("string"),
			"deliverables":  nullableArrayOf("string"),
		},
		"required": []string{"phase", "schedule_type"},
	}

	task := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id":   map[string]any{"type": "integer"},
			"task_name": map[string]any{"type": "string"},
			"phase":     map[string]any{"type": "string"},
			"due_date":  nullable("string"),
			"priority":  nullableFormat(formatPriority),
			"status":    nullableFormat(formatTaskStatus),
		},
		"required": []string{"task_id", "task_name", "phase"},
	}

	schedule := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contract_name":       nullable("string"),
			"company_name":        nullable("string"),
			"contractor":          nullable("string"),
			"client":              nullable("string"),
			"contract_date":       nullable("string"),
			"contract_start_date": nullable("string"),
			"contract_end_date":   nullable("string"),
			"total_duration_days": nullable("integer"),
			"contract_amount":     nullable("string"),
			"payment_method":      nullable("string"),
			"payment_due_date":    nullable("string"),
			"schedules": map[string]any{
				"type":  []string{"array", "null"},
				"items": scheduleItem,
			},
			"milestones": nullableArrayOf("string"),
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"contract_schedule": schedule,
			"task_list": map[string]any{
				"type":  []string{"array", "null"},
				"items": task,
			},
			"raw_text": nullable("string"),
		},
		"required": []string{"contract_schedule"},
	}
}

func nullable(typ string) map[string]any {
	return map[string]any{"type": []string{typ, "null"}}
}

func nullableArrayOf(typ string) map[string]any {
	return map[string]any{
		"type":  []string{"array", "null"},
		"items": map[string]any{"type": typ},
	}
}

// nullableFormat checks a string with one of the formats registered in
// CompileSchema, so the schema accepts exactly what the constants
// canonicalisers accept.
func nullableFormat(name string) map[string]any {
	return map[string]any{"type": []string{"string", "null"}, "format": name}
}
