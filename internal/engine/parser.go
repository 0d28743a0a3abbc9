package engine

import (
	"encoding/json"
	"fmt"

	"github.com/shaiso/Apiary/internal/domain"
)

// ParseWorkflow парсит workflow из JSON и валидирует его граф.
//
// Сериализация симметрична: json.Marshal воркфлоу, прошедшего через
// ParseWorkflow, даёт эквивалентный при выполнении граф.
func ParseWorkflow(data []byte) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow JSON: %w", err)
	}

	if _, err := Build(&wf); err != nil {
		return nil, err
	}

	return &wf, nil
}
