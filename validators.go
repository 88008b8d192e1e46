package newline

import (
	"bytes"
	"io"

	jsoniter "github.com/json-iterator/go"
)

const lineSpace = " \t\v\f"

// ValidateNotEmpty validates that line contains at least one non-whitespace character
func ValidateNotEmpty() Validator {
	return func(line []byte) bool {
		return len(bytes.TrimLeft(line, lineSpace)) > 0
	}
}

// ValidateIsJSONObject returns true if the first non-whitespace byte is '{'. It does not check
// the rest of the line.
func ValidateIsJSONObject() Validator {
	return func(line []byte) bool {
		return bytes.HasPrefix(bytes.TrimLeft(line, lineSpace), []byte("{"))
	}
}

// ValidateJSON validates that line is exactly one json value, optionally surrounded by whitespace
func ValidateJSON() Validator {
	return func(line []byte) bool {
		// a number running into the end of input is an error to jsoniter, so give it a delimiter
		padded := make([]byte, len(line)+1)
		copy(padded, line)
		padded[len(line)] = ' '
		iter := jsoniter.ConfigFastest.BorrowIterator(padded)
		defer jsoniter.ConfigFastest.ReturnIterator(iter)
		iter.Skip()
		if iter.Error != nil {
			return false
		}
		return iter.WhatIsNext() == jsoniter.InvalidValue && iter.Error == io.EOF
	}
}

// JSONValueValidator validates a json value
type JSONValueValidator func(val interface{}) bool

// JSONFieldValidator validates the value of a top-level json field
type JSONFieldValidator struct {
	Field     string
	Validator JSONValueValidator
}

// ValidateJSONFields validates that line is a json object whose fields all pass validators. A
// missing field fails validation.
func ValidateJSONFields(validators []JSONFieldValidator) Validator {
	return func(line []byte) bool {
		for _, v := range validators {
			val := jsoniter.ConfigFastest.Get(line, v.Field)
			if val.LastError() != nil || val.ValueType() == jsoniter.InvalidValue {
				return false
			}
			if !v.Validator(val.GetInterface()) {
				return false
			}
		}
		return true
	}
}

// StringValueValidator validates a json string. Other json types fail validation.
func StringValueValidator(validate func(val string) bool) JSONValueValidator {
	return func(val interface{}) bool {
		if s, ok := val.(string); ok {
			return validate(s)
		}
		return false
	}
}
