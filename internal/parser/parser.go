package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	cerrors "github.com/cockroachdb/errors"

	"github.com/mcncl/jsonshape/codec"
	"github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/models"
	"github.com/mcncl/jsonshape/jsonerr"
	"github.com/mcncl/jsonshape/lexer"
)

// Parse reads exactly one JSON document from reader into an ordered IntermediateRepresentation.
// Object members keep their document order so inferred structs follow the sample.
func Parse(reader io.Reader) (models.IntermediateRepresentation, error) {
	lex := lexer.New(bufio.NewReader(reader))
	p := &docParser{lex: lex}

	tok, err := lex.Next()
	if err != nil {
		return models.IntermediateRepresentation{}, syntaxError(err)
	}
	if tok.Kind == lexer.EOF {
		return models.IntermediateRepresentation{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}

	root, err := p.value(tok, 0)
	if err != nil {
		return models.IntermediateRepresentation{}, syntaxError(err)
	}

	// Only whitespace may follow the document.
	trailing, err := lex.Next()
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
	}
	if trailing.Kind != lexer.EOF {
		return models.IntermediateRepresentation{}, errors.NewParsingError(
			fmt.Sprintf("multiple JSON values found at the root (offset %d)", trailing.Offset),
			errors.ErrMultipleJSON,
		)
	}

	return models.IntermediateRepresentation{
		Root:        root,
		RootIsArray: root.Kind == models.ArrayValue,
	}, nil
}

type docParser struct {
	lex *lexer.Lexer
}

func (p *docParser) next() (lexer.Token, error) {
	return p.lex.Next()
}

func (p *docParser) value(tok lexer.Token, depth int) (*models.JSONValue, error) {
	v := &models.JSONValue{Offset: tok.Offset}
	switch tok.Kind {
	case lexer.BeginObject, lexer.BeginArray:
		if depth >= codec.MaxDepth {
			return nil, jsonerr.Structural(tok.Offset, "nesting deeper than %d levels", codec.MaxDepth)
		}
		if tok.Kind == lexer.BeginObject {
			v.Kind = models.Object
			return v, p.object(v, depth+1)
		}
		v.Kind = models.ArrayValue
		return v, p.array(v, depth+1)
	case lexer.String:
		v.Kind = models.String
		v.Text = tok.Text
	case lexer.Number:
		v.Kind = models.Number
		v.Text = tok.Text
	case lexer.Literal:
		switch tok.Text {
		case "true", "false":
			v.Kind = models.Bool
			v.Bool = tok.Text == "true"
		default:
			v.Kind = models.Null
		}
	default:
		return nil, jsonerr.Structural(tok.Offset, "unexpected %s, expected a value", tok.Describe())
	}
	return v, nil
}

func (p *docParser) object(v *models.JSONValue, depth int) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind == lexer.EndObject {
		return nil
	}
	for {
		if tok.Kind != lexer.String {
			return jsonerr.Structural(tok.Offset, "unexpected %s, expected object key", tok.Describe())
		}
		key := tok.Text

		if tok, err = p.next(); err != nil {
			return err
		}
		if tok.Kind != lexer.Colon {
			return jsonerr.Structural(tok.Offset, "unexpected %s, expected ':'", tok.Describe())
		}
		if tok, err = p.next(); err != nil {
			return err
		}
		member, err := p.value(tok, depth)
		if err != nil {
			return err
		}
		v.Members = append(v.Members, models.Member{Key: key, Value: member})

		if tok, err = p.next(); err != nil {
			return err
		}
		switch tok.Kind {
		case lexer.EndObject:
			return nil
		case lexer.Comma:
			if tok, err = p.next(); err != nil {
				return err
			}
		default:
			return jsonerr.Structural(tok.Offset, "unexpected %s, expected ',' or '}'", tok.Describe())
		}
	}
}

func (p *docParser) array(v *models.JSONValue, depth int) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind == lexer.EndArray {
		return nil
	}
	for {
		item, err := p.value(tok, depth)
		if err != nil {
			return err
		}
		v.Items = append(v.Items, item)

		if tok, err = p.next(); err != nil {
			return err
		}
		switch tok.Kind {
		case lexer.EndArray:
			return nil
		case lexer.Comma:
			if tok, err = p.next(); err != nil {
				return err
			}
		default:
			return jsonerr.Structural(tok.Offset, "unexpected %s, expected ',' or ']'", tok.Describe())
		}
	}
}

func syntaxError(err error) error {
	var rt *jsonerr.Error
	if cerrors.As(err, &rt) && rt.Kind != jsonerr.KindIO {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d: %s", rt.Offset, rt.Message),
			cerrors.Mark(err, errors.ErrInvalidJSON),
		)
	}
	return errors.NewInputError("failed to read JSON input", err)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.IntermediateRepresentation{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return Parse(file)
}
