/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package maphelpers holds helpers for generic JSON values (maps, slices and json.Number).
package maphelpers

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/mitchellh/mapstructure"
)

// CopyMap deep copies nested maps and slices; other values are shared.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}

	cm := make(map[string]interface{}, len(m))

	for k, v := range m {
		cm[k] = CopyValue(v)
	}

	return cm
}

// CopyValue deep copies v when it is a map or a slice.
func CopyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		return CopyMap(tv)
	case []interface{}:
		cs := make([]interface{}, len(tv))
		for i := range tv {
			cs[i] = CopyValue(tv[i])
		}

		return cs
	default:
		return v
	}
}

//nolint:gochecknoglobals
var (
	jsonNumberType  = reflect.TypeOf(json.Number(""))
	numericDateType = reflect.TypeOf(jwt.NumericDate(0))
)

// JSONNumberToJwtNumericDate is a mapstructure hook decoding json.Number into jwt.NumericDate
// or *jwt.NumericDate.
func JSONNumberToJwtNumericDate() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f != jsonNumberType {
			return data, nil
		}

		if t != numericDateType && !(t.Kind() == reflect.Ptr && t.Elem() == numericDateType) {
			return data, nil
		}

		seconds, err := strconv.ParseFloat(fmt.Sprint(data), 64)
		if err != nil {
			return nil, fmt.Errorf("parse numeric date: %w", err)
		}

		date := jwt.NewNumericDate(time.Unix(int64(seconds), 0))
		if t == numericDateType {
			return *date, nil
		}

		return date, nil
	}
}

// DecodeJSONMap decodes a generic JSON object into v using json struct tags.
func DecodeJSONMap(m map[string]interface{}, v interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook:       JSONNumberToJwtNumericDate(),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	if err = d.Decode(m); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return nil
}
