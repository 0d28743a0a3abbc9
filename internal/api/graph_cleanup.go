package api

import (
	"strings"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// extractorVariables собирает имена переменных, которые определяют
// экстракторы графа.
func extractorVariables(nodes []domain.Node) map[string]bool {
	vars := make(map[string]bool)
	for _, n := range nodes {
		if n.HTTP == nil {
			continue
		}
		for name := range n.HTTP.Extract {
			vars[name] = true
		}
	}
	return vars
}

// stripRemovedVariables вычищает из нового графа ссылки на переменные,
// потерявшие свой экстрактор при обновлении: вхождения {{variables.X}}
// в шаблонных полях и assertions с source=variables по X.
// Возвращает имена переменных, ссылки на которые были вычищены.
//
// Старые переменные загружаются в VarStore, подписчик OnVariableDeleted
// правит граф, после чего исчезнувшие переменные удаляются из хранилища.
func stripRemovedVariables(oldNodes, newNodes []domain.Node) []string {
	oldVars := extractorVariables(oldNodes)
	if len(oldVars) == 0 {
		return nil
	}
	newVars := extractorVariables(newNodes)

	store := expr.NewVarStore(nil)
	for name := range oldVars {
		store.Set(name, nil)
	}

	var stripped []string
	unsubscribe := store.OnVariableDeleted(func(name string) {
		if stripVariableRefs(newNodes, name) {
			stripped = append(stripped, name)
		}
	})
	defer unsubscribe()

	for name := range oldVars {
		if !newVars[name] {
			store.Delete(name)
		}
	}

	return stripped
}

// stripVariableRefs удаляет ссылки на переменную name из конфигов узлов.
// Сообщает, была ли удалена хоть одна ссылка.
func stripVariableRefs(nodes []domain.Node, name string) bool {
	token := "{{variables." + name + "}}"
	found := false

	cut := func(s string) string {
		if strings.Contains(s, token) {
			found = true
			return strings.ReplaceAll(s, token, "")
		}
		return s
	}

	for i := range nodes {
		if h := nodes[i].HTTP; h != nil {
			h.URL = cut(h.URL)
			h.QueryBlock = cut(h.QueryBlock)
			h.HeaderBlock = cut(h.HeaderBlock)
			h.CookieBlock = cut(h.CookieBlock)
			h.Body = cut(h.Body)
		}
		if a := nodes[i].Assert; a != nil {
			kept := a.Assertions[:0]
			for _, as := range a.Assertions {
				if as.Source == domain.SourceVariables && as.Path == name {
					found = true
					continue
				}
				as.Expected = cut(as.Expected)
				kept = append(kept, as)
			}
			a.Assertions = kept
		}
	}

	return found
}
