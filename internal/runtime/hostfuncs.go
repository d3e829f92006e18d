package runtime

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/risor-io/risor/object"
)

// stringArg unwraps a string argument or returns a Risor error.
func stringArg(fn string, arg object.Object, what string) (string, *object.Error) {
	s, ok := arg.(*object.String)
	if !ok {
		return "", object.Errorf("%s: %s must be a string, got %s", fn, what, arg.Type())
	}
	return s.Value(), nil
}

// makeFileExistsFn creates the "file_exists" host function.
//
// file_exists(path) → bool
func makeFileExistsFn() *object.Builtin {
	return object.NewBuiltin("file_exists", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("file_exists", 1, len(args))
		}
		path, errObj := stringArg("file_exists", args[0], "path")
		if errObj != nil {
			return errObj
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return object.False
		}
		return object.True
	})
}

// makeIsDirFn creates the "is_dir" host function.
//
// is_dir(path) → bool
func makeIsDirFn() *object.Builtin {
	return object.NewBuiltin("is_dir", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("is_dir", 1, len(args))
		}
		path, errObj := stringArg("is_dir", args[0], "path")
		if errObj != nil {
			return errObj
		}
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return object.False
		}
		return object.True
	})
}

// makePathJoinFn creates the "path_join" host function.
//
// path_join(elem, ...) → string
func makePathJoinFn() *object.Builtin {
	return object.NewBuiltin("path_join", func(ctx context.Context, args ...object.Object) object.Object {
		elems := make([]string, 0, len(args))
		for _, arg := range args {
			s, errObj := stringArg("path_join", arg, "element")
			if errObj != nil {
				return errObj
			}
			elems = append(elems, s)
		}
		return object.NewString(filepath.Join(elems...))
	})
}

// makeProbeFn creates the "probe" host function, returning nil when no
// source file matches.
//
// probe(path) → string or nil
func makeProbeFn(probe func(string) (string, bool)) *object.Builtin {
	return object.NewBuiltin("probe", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("probe", 1, len(args))
		}
		path, errObj := stringArg("probe", args[0], "path")
		if errObj != nil {
			return errObj
		}
		found, ok := probe(path)
		if !ok {
			return object.Nil
		}
		return object.NewString(found)
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	log *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.log.Info(msg, slog.String("source", "resolver-script"))
}

func (l *logObject) Warn(msg string) {
	l.log.Warn(msg, slog.String("source", "resolver-script"))
}

func (l *logObject) Error(msg string) {
	l.log.Error(msg, slog.String("source", "resolver-script"))
}
