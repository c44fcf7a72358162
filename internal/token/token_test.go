package token

import "testing"

func TestNewSliceStreamAppendsEOF(t *testing.T) {
	s := NewSliceStream([]Token{{Kind: Ident, Lexeme: "x"}})
	if got := s.Next(); got.Kind != Ident {
		t.Fatalf("first Next() = %v, want Ident", got.Kind)
	}
	if got := s.Next(); got.Kind != EOF {
		t.Fatalf("second Next() = %v, want auto-appended EOF", got.Kind)
	}
}

func TestNewSliceStreamEmptyYieldsEOF(t *testing.T) {
	s := NewSliceStream(nil)
	if got := s.Peek(); got.Kind != EOF {
		t.Fatalf("Peek() on empty stream = %v, want EOF", got.Kind)
	}
}

func TestNextPastEOFStaysAtEOF(t *testing.T) {
	s := NewSliceStream([]Token{{Kind: Ident, Lexeme: "x"}})
	s.Next()
	s.Next()
	for i := 0; i < 3; i++ {
		if got := s.Next(); got.Kind != EOF {
			t.Fatalf("Next() past end = %v, want EOF", got.Kind)
		}
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	s := NewSliceStream([]Token{{Kind: Ident, Lexeme: "a"}, {Kind: Ident, Lexeme: "b"}})
	first := s.Peek()
	second := s.Peek()
	if first != second {
		t.Fatalf("Peek() must not advance the cursor: got %v then %v", first, second)
	}
	if got := s.Next().Lexeme; got != "a" {
		t.Fatalf("Next() after two Peeks = %q, want %q", got, "a")
	}
}

func TestMarkAndReset(t *testing.T) {
	s := NewSliceStream([]Token{
		{Kind: Ident, Lexeme: "a"},
		{Kind: Ident, Lexeme: "b"},
		{Kind: Ident, Lexeme: "c"},
	})
	s.Next() // consume "a"
	mark := s.Mark()
	s.Next() // consume "b"
	s.Next() // consume "c"
	s.Reset(mark)
	if got := s.Next().Lexeme; got != "b" {
		t.Fatalf("after Reset to mark, Next() = %q, want %q", got, "b")
	}
}

func TestTokenStringIncludesLocation(t *testing.T) {
	tok := Token{Kind: Ident, Lexeme: "foo", Loc: Loc{File: "a.c", Line: 3}}
	if got, want := tok.String(), `identifier("foo")@a.c:3`; got != want {
		t.Errorf("Token.String() = %q, want %q", got, want)
	}
}
