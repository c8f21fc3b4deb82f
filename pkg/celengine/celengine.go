package celengine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

// BuildCelEnvFromAttributes declares one CEL variable per attribute, typed
// from the Go value it holds.
func BuildCelEnvFromAttributes(attrs map[string]any) (*cel.Env, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	variables := make([]cel.EnvOption, 0, len(keys))
	for _, key := range keys {
		variables = append(variables, cel.Variable(key, celType(key, attrs[key])))
	}

	return cel.NewEnv(variables...)
}

func celType(key string, val any) *cel.Type {
	switch val.(type) {
	case string:
		return cel.StringType
	case int, int32, int64:
		return cel.IntType
	case uint, uint32, uint64:
		return cel.UintType
	case float32, float64:
		return cel.DoubleType
	case bool:
		return cel.BoolType
	case time.Time:
		return cel.TimestampType
	case time.Duration:
		return cel.DurationType
	case []any:
		return cel.ListType(cel.DynType)
	case map[string]any:
		return cel.MapType(cel.StringType, cel.DynType)
	default:
		zap.L().Debug("unhandled attribute type, declaring dyn", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", val)))
		return cel.DynType
	}
}

func ValidateExpression(env *cel.Env, expr string) error {
	_, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}
	return nil
}

// CompileBool compiles expr and checks it yields a boolean.
func CompileBool(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression %q must return bool, got %s", expr, ast.OutputType())
	}
	return env.Program(ast)
}

func EvalBool(prg cel.Program, attrs map[string]any) (bool, error) {
	out, _, err := prg.Eval(attrs)
	if err != nil {
		return false, err
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expected bool from expression, got %T (%v)", out.Value(), out.Value())
	}
	return b, nil
}

// Evaluate compiles and runs expr in one go. Prefer CompileBool + EvalBool on hot paths.
func Evaluate(env *cel.Env, expr string, attrs map[string]any) (bool, error) {
	prg, err := CompileBool(env, expr)
	if err != nil {
		return false, err
	}
	return EvalBool(prg, attrs)
}
