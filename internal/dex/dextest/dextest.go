// Package dextest provides class containers for tests.
package dextest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gnolang/pgrename/internal/dex"
)

// Redex is the field obfuscation scenario: Alpha has four plain fields,
// Beta reads fields of Hello and World through their subclass All.
const Redex = `{
  "format": "v1.0.0",
  "classes": [
    {
      "name": "Lcom/facebook/redex/test/proguard/Alpha;",
      "access": ["public"],
      "super": "Ljava/lang/Object;",
      "fields": [
        {"name": "wombat", "type": "I"},
        {"name": "numbat", "type": "I"},
        {"name": "omega", "type": "Ljava/lang/String;"},
        {"name": "theta", "type": "Ljava/util/List;"}
      ],
      "methods": [
        {"name": "<init>", "proto": "()V", "access": ["public"], "code": [
          {"op": "invoke-direct", "regs": [0], "method": "Ljava/lang/Object;.<init>:()V"},
          {"op": "return-void"}
        ]},
        {"name": "doubleWombat", "proto": "()I", "access": ["public"], "code": [
          {"op": "iget", "regs": [0, 1], "field": "Lcom/facebook/redex/test/proguard/Alpha;.wombat:I"},
          {"op": "mul-int/lit8", "regs": [0, 0], "literal": 2},
          {"op": "return", "regs": [0]}
        ]}
      ]
    },
    {
      "name": "Lcom/facebook/redex/test/proguard/Beta;",
      "access": ["public"],
      "super": "Ljava/lang/Object;",
      "fields": [
        {"name": "wombatBeta", "type": "I"}
      ],
      "methods": [
        {"name": "<init>", "proto": "()V", "access": ["public"]},
        {"name": "doubleWombatBeta", "proto": "()I", "access": ["public"], "code": [
          {"op": "iget", "regs": [0, 1], "field": "Lcom/facebook/redex/test/proguard/Beta;.wombatBeta:I"},
          {"op": "return", "regs": [0]}
        ]},
        {"name": "all", "proto": "()Ljava/lang/String;", "access": ["public"], "code": [
          {"op": "new-instance", "regs": [0], "type": "Lcom/facebook/redex/test/proguard/All;"},
          {"op": "invoke-direct", "regs": [0], "method": "Lcom/facebook/redex/test/proguard/All;.<init>:()V"},
          {"op": "iget-object", "regs": [1, 0], "field": "Lcom/facebook/redex/test/proguard/All;.hello:Ljava/lang/String;"},
          {"op": "iget-object", "regs": [2, 0], "field": "Lcom/facebook/redex/test/proguard/All;.world:Ljava/lang/String;"},
          {"op": "invoke-virtual", "regs": [1, 2], "method": "Ljava/lang/String;.concat:(Ljava/lang/String;)Ljava/lang/String;"},
          {"op": "move-result-object", "regs": [1]},
          {"op": "return-object", "regs": [1]}
        ]}
      ]
    },
    {
      "name": "Lcom/facebook/redex/test/proguard/Hello;",
      "access": ["public"],
      "super": "Ljava/lang/Object;",
      "fields": [
        {"name": "hello", "type": "Ljava/lang/String;", "access": ["public"]}
      ],
      "methods": [
        {"name": "<init>", "proto": "()V", "access": ["public"]}
      ]
    },
    {
      "name": "Lcom/facebook/redex/test/proguard/World;",
      "access": ["public"],
      "super": "Lcom/facebook/redex/test/proguard/Hello;",
      "fields": [
        {"name": "world", "type": "Ljava/lang/String;", "access": ["public"]}
      ],
      "methods": [
        {"name": "<init>", "proto": "()V", "access": ["public"]}
      ]
    },
    {
      "name": "Lcom/facebook/redex/test/proguard/All;",
      "access": ["public"],
      "super": "Lcom/facebook/redex/test/proguard/World;",
      "methods": [
        {"name": "<init>", "proto": "()V", "access": ["public"]}
      ]
    }
  ]
}`

// RedexRules keeps the class names the scenario looks up and Beta's field.
const RedexRules = `
-keepnames class com.facebook.redex.test.proguard.Alpha
-keepnames class com.facebook.redex.test.proguard.Hello
-keepnames class com.facebook.redex.test.proguard.World
-keep class com.facebook.redex.test.proguard.Beta {
  int wombatBeta;
}
`

// Decode parses a container literal or fails the test.
func Decode(t testing.TB, src string) *dex.Graph {
	t.Helper()
	g, err := dex.Decode([]byte(src))
	require.NoError(t, err)
	return g
}
