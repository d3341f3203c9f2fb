package engine

import (
	"bytes"
	"encoding/json"
)

// Env — окружение переменных ветки: упорядоченное отображение имя → Value.
//
// Создаётся пустым у корня и копируется (Clone) для каждого дочернего
// узла, поэтому присваивания в одной ветке не видны соседним.
type Env struct {
	keys   []string
	values map[string]Value
}

// NewEnv создаёт пустое окружение.
func NewEnv() *Env {
	return &Env{values: make(map[string]Value)}
}

// Clone возвращает независимую копию окружения.
func (e *Env) Clone() *Env {
	c := &Env{
		keys:   make([]string, len(e.keys)),
		values: make(map[string]Value, len(e.values)),
	}
	copy(c.keys, e.keys)
	for k, v := range e.values {
		c.values[k] = v
	}
	return c
}

// Get возвращает значение переменной.
func (e *Env) Get(name string) (Value, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Set присваивает значение. Новые имена добавляются в конец,
// перезапись сохраняет исходную позицию.
func (e *Env) Set(name string, v Value) {
	if _, ok := e.values[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.values[name] = v
}

// Len возвращает количество переменных.
func (e *Env) Len() int { return len(e.keys) }

// MarshalJSON сериализует окружение как JSON-объект с сохранением порядка ключей.
func (e *Env) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
