package descriptor

import (
	"strings"
)

// Proto is a parsed method prototype.
type Proto struct {
	Params []string
	Return string
}

// ParseProto parses a prototype of the form "(Params)Ret".
func ParseProto(s string) (Proto, error) {
	if len(s) < 3 || s[0] != '(' {
		return Proto{}, malformed(s)
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return Proto{}, malformed(s)
	}
	params, err := SplitTypes(s[1:end])
	if err != nil {
		return Proto{}, malformed(s)
	}
	ret := s[end+1:]
	if err := Validate(ret); err != nil {
		return Proto{}, malformed(s)
	}
	return Proto{Params: params, Return: ret}, nil
}

func (p Proto) String() string {
	return p.ParamsKey() + p.Return
}

// ParamsKey returns the parenthesized parameter list without the return type.
// Methods sharing a ParamsKey cannot share a name in the same class.
func (p Proto) ParamsKey() string {
	return "(" + strings.Join(p.Params, "") + ")"
}

// JavaParams renders the parameter list as Proguard mappings spell it:
// "int,java.lang.String".
func (p Proto) JavaParams() string {
	parts := make([]string, len(p.Params))
	for i, param := range p.Params {
		parts[i] = JavaType(param)
	}
	return strings.Join(parts, ",")
}

// Field formats a field descriptor "LOwner;.name:Type".
func Field(owner, name, typ string) string {
	return owner + "." + name + ":" + typ
}

// Method formats a method descriptor "LOwner;.name:(Params)Ret".
func Method(owner, name string, proto Proto) string {
	return owner + "." + name + ":" + proto.String()
}

// splitMember splits "Owner.name:rest" where Owner is itself a type
// descriptor, which may be an array (e.g. "[I.clone:()Ljava/lang/Object;").
func splitMember(s string) (owner, name, rest string, err error) {
	n, err := typeLen(s)
	if err != nil || n >= len(s) || s[n] != '.' {
		return "", "", "", malformed(s)
	}
	owner = s[:n]
	tail := s[n+1:]
	colon := strings.IndexByte(tail, ':')
	if colon <= 0 {
		return "", "", "", malformed(s)
	}
	return owner, tail[:colon], tail[colon+1:], nil
}

// ParseField parses a field descriptor into its owner, name and type.
func ParseField(s string) (owner, name, typ string, err error) {
	owner, name, typ, err = splitMember(s)
	if err != nil {
		return "", "", "", err
	}
	if err := Validate(typ); err != nil || typ == "V" {
		return "", "", "", malformed(s)
	}
	return owner, name, typ, nil
}

// ParseMethod parses a method descriptor into its owner, name and prototype.
func ParseMethod(s string) (owner, name string, proto Proto, err error) {
	owner, name, rest, err := splitMember(s)
	if err != nil {
		return "", "", Proto{}, err
	}
	proto, err = ParseProto(rest)
	if err != nil {
		return "", "", Proto{}, malformed(s)
	}
	return owner, name, proto, nil
}
