/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ListKeys returns the path of every member and array element of claims, parents before children,
// e.g. ["address", "address.street", "nationalities", "nationalities.0"].
func ListKeys(claims interface{}) []string {
	return listKeys(claims, "")
}

func listKeys(v interface{}, prefix string) []string {
	var keys []string

	node := NewClaimNode(v)

	switch node.Kind {
	case ObjectNode:
		names := maps.Keys(node.Object)
		slices.Sort(names)

		for _, name := range names {
			path := JoinPath(prefix, name)

			keys = append(keys, path)
			keys = append(keys, listKeys(node.Object[name], path)...)
		}
	case ArrayNode:
		for i, el := range node.Array {
			path := JoinPath(prefix, strconv.Itoa(i))

			keys = append(keys, path)
			keys = append(keys, listKeys(el, path)...)
		}
	case ScalarNode:
	}

	return keys
}
