package parser

import (
	"context"
	"testing"

	"github.com/whynotshrutz/helix/pkg/source"
)

func parseSource(t *testing.T, path, content string) FileSyntax {
	t.Helper()
	f := source.NewFile(path, []byte(content))
	lang := DetectLanguage(path)
	f.Language = string(lang)
	return AdapterFor(lang).Parse(context.Background(), &f)
}

func findDef(t *testing.T, syn FileSyntax, name string) Definition {
	t.Helper()
	for _, def := range syn.Definitions {
		if def.Name == name {
			return def
		}
	}
	t.Fatalf("definition %q not found in %+v", name, syn.Definitions)
	return Definition{}
}

func findImport(t *testing.T, syn FileSyntax, spec string) Import {
	t.Helper()
	for _, imp := range syn.Imports {
		if imp.Spec == spec {
			return imp
		}
	}
	t.Fatalf("import %q not found in %+v", spec, syn.Imports)
	return Import{}
}

func TestStructuralGo(t *testing.T) {
	src := `package main

import (
	"fmt"
	stdos "os"
	_ "embed"
)

// greet prints a greeting.
func greet(name string, loud bool) {
	if loud {
		fmt.Println(name, stdos.Args)
	}
}

func (s *server) handle(a, b int, c string) error {
	for i := 0; i < a; i++ {
		if i%2 == 0 || c == "" {
			continue
		}
	}
	return nil
}
`
	syn := parseSource(t, "main.go", src)

	if syn.Status != source.StatusOK {
		t.Fatalf("Status = %v (%s), want ok", syn.Status, syn.Reason)
	}
	if len(syn.Imports) != 3 {
		t.Fatalf("got %d imports, want 3", len(syn.Imports))
	}

	fmtImp := findImport(t, syn, "fmt")
	if len(fmtImp.Names) != 1 || fmtImp.Names[0] != "fmt" {
		t.Errorf("fmt import Names = %v, want [fmt]", fmtImp.Names)
	}
	if fmtImp.Line != 4 {
		t.Errorf("fmt import Line = %d, want 4", fmtImp.Line)
	}

	osImp := findImport(t, syn, "os")
	if len(osImp.Names) != 1 || osImp.Names[0] != "stdos" {
		t.Errorf("aliased import Names = %v, want [stdos]", osImp.Names)
	}

	if !findImport(t, syn, "embed").Wildcard {
		t.Error("blank import should be wildcard")
	}

	greet := findDef(t, syn, "greet")
	if greet.Kind != KindFunction {
		t.Errorf("greet.Kind = %v, want function", greet.Kind)
	}
	if greet.ParamCount != 2 {
		t.Errorf("greet.ParamCount = %d, want 2", greet.ParamCount)
	}
	if greet.BranchCount != 1 {
		t.Errorf("greet.BranchCount = %d, want 1", greet.BranchCount)
	}
	if !greet.HasDocstring {
		t.Error("greet has a doc comment, HasDocstring should be true")
	}
	if greet.StartLine != 10 || greet.EndLine != 14 {
		t.Errorf("greet span = %d-%d, want 10-14", greet.StartLine, greet.EndLine)
	}

	handle := findDef(t, syn, "handle")
	if handle.Kind != KindMethod {
		t.Errorf("handle.Kind = %v, want method", handle.Kind)
	}
	if handle.ParamCount != 3 {
		t.Errorf("handle.ParamCount = %d, want 3 (grouped names)", handle.ParamCount)
	}
	if handle.BranchCount != 3 {
		t.Errorf("handle.BranchCount = %d, want 3 (for, if, ||)", handle.BranchCount)
	}
	if handle.HasDocstring {
		t.Error("handle has no doc comment")
	}
}

func TestStructuralGoSwitch(t *testing.T) {
	src := `package main

func classify(n int) string {
	switch {
	case n < 0:
		return "neg"
	case n == 0:
		return "zero"
	}
	switch v := any(n).(type) {
	case int:
		_ = v
	}
	return "pos"
}
`
	syn := parseSource(t, "classify.go", src)
	def := findDef(t, syn, "classify")
	// Two expression cases plus one type case, each its own path.
	if def.BranchCount != 3 {
		t.Errorf("BranchCount = %d, want 3", def.BranchCount)
	}
}

func TestStructuralPython(t *testing.T) {
	src := `import os.path
import json as j
from typing import List, Optional
from utils import *

class Greeter:
    """Greets people."""

    def greet(self, name):
        """Say hello."""
        if name and name != "world":
            return j.dumps(name)
        return os.path.basename("hello")

def main():
    for i in List():
        print(i, Optional)
`
	syn := parseSource(t, "greeter.py", src)

	if syn.Status != source.StatusOK {
		t.Fatalf("Status = %v (%s), want ok", syn.Status, syn.Reason)
	}

	osImp := findImport(t, syn, "os.path")
	if len(osImp.Names) != 1 || osImp.Names[0] != "os" {
		t.Errorf("plain dotted import binds %v, want [os]", osImp.Names)
	}

	jsonImp := findImport(t, syn, "json")
	if len(jsonImp.Names) != 1 || jsonImp.Names[0] != "j" {
		t.Errorf("aliased import binds %v, want [j]", jsonImp.Names)
	}

	typing := findImport(t, syn, "typing")
	if len(typing.Names) != 2 || typing.Names[0] != "List" || typing.Names[1] != "Optional" {
		t.Errorf("from-import binds %v, want [List Optional]", typing.Names)
	}

	if !findImport(t, syn, "utils").Wildcard {
		t.Error("star import should be wildcard")
	}

	greeter := findDef(t, syn, "Greeter")
	if greeter.Kind != KindClass {
		t.Errorf("Greeter.Kind = %v, want class", greeter.Kind)
	}
	if !greeter.HasDocstring {
		t.Error("Greeter has a docstring")
	}
	// Class spans include their methods' branches.
	if greeter.BranchCount != 2 {
		t.Errorf("Greeter.BranchCount = %d, want 2", greeter.BranchCount)
	}

	greet := findDef(t, syn, "greet")
	if greet.Kind != KindMethod {
		t.Errorf("greet.Kind = %v, want method", greet.Kind)
	}
	if greet.ParamCount != 2 {
		t.Errorf("greet.ParamCount = %d, want 2", greet.ParamCount)
	}
	if greet.BranchCount != 2 {
		t.Errorf("greet.BranchCount = %d, want 2 (if, and)", greet.BranchCount)
	}
	if !greet.HasDocstring {
		t.Error("greet has a docstring")
	}

	main := findDef(t, syn, "main")
	if main.Kind != KindFunction {
		t.Errorf("main.Kind = %v, want function", main.Kind)
	}
	if main.BranchCount != 1 {
		t.Errorf("main.BranchCount = %d, want 1", main.BranchCount)
	}
	if main.HasDocstring {
		t.Error("main has no docstring")
	}
}

func TestStructuralJavaScript(t *testing.T) {
	src := `import React from 'react';
import { useState, useEffect as effect } from 'react';
import * as path from 'path';
import './styles.css';

export function render(tree) {
  return tree ? path.basename(tree) : null;
}

const walk = (node) => {
  if (!node) return [];
  return node.children;
};

class Renderer {
  draw(ctx, scale) {
    while (scale > 1) {
      scale -= 1;
    }
  }
}
`
	syn := parseSource(t, "render.js", src)

	if len(syn.Imports) != 4 {
		t.Fatalf("got %d imports, want 4", len(syn.Imports))
	}

	var defaultImp, namedImp Import
	for _, imp := range syn.Imports {
		if imp.Spec != "react" {
			continue
		}
		if len(imp.Names) == 1 {
			defaultImp = imp
		} else {
			namedImp = imp
		}
	}
	if len(defaultImp.Names) != 1 || defaultImp.Names[0] != "React" {
		t.Errorf("default import binds %v, want [React]", defaultImp.Names)
	}
	if len(namedImp.Names) != 2 || namedImp.Names[0] != "useState" || namedImp.Names[1] != "effect" {
		t.Errorf("named import binds %v, want [useState effect]", namedImp.Names)
	}

	pathImp := findImport(t, syn, "path")
	if len(pathImp.Names) != 1 || pathImp.Names[0] != "path" {
		t.Errorf("namespace import binds %v, want [path]", pathImp.Names)
	}

	if !findImport(t, syn, "./styles.css").Wildcard {
		t.Error("side-effect import should be wildcard")
	}

	render := findDef(t, syn, "render")
	if render.Kind != KindFunction || render.ParamCount != 1 || render.BranchCount != 1 {
		t.Errorf("render = %+v, want function with 1 param and 1 branch (ternary)", render)
	}

	walk := findDef(t, syn, "walk")
	if walk.Kind != KindFunction {
		t.Errorf("walk.Kind = %v, want function (arrow)", walk.Kind)
	}
	if walk.ParamCount != 1 || walk.BranchCount != 1 {
		t.Errorf("walk params/branches = %d/%d, want 1/1", walk.ParamCount, walk.BranchCount)
	}

	if findDef(t, syn, "Renderer").Kind != KindClass {
		t.Error("Renderer should be a class")
	}

	draw := findDef(t, syn, "draw")
	if draw.Kind != KindMethod || draw.ParamCount != 2 || draw.BranchCount != 1 {
		t.Errorf("draw = %+v, want method with 2 params and 1 branch", draw)
	}
}

func TestStructuralJava(t *testing.T) {
	src := `import java.util.List;
import java.util.*;

public class Service {
    private final List<String> items;

    public Service(List<String> items) {
        this.items = items;
    }

    public String find(String key) {
        for (String item : items) {
            if (item.equals(key)) {
                return item;
            }
        }
        return null;
    }
}
`
	syn := parseSource(t, "Service.java", src)

	listImp := findImport(t, syn, "java.util.List")
	if len(listImp.Names) != 1 || listImp.Names[0] != "List" {
		t.Errorf("import binds %v, want [List]", listImp.Names)
	}
	if !findImport(t, syn, "java.util").Wildcard {
		t.Error("asterisk import should be wildcard")
	}

	// The constructor shares the class name, so resolve both by kind.
	var class, ctor Definition
	for _, def := range syn.Definitions {
		if def.Name != "Service" {
			continue
		}
		switch def.Kind {
		case KindClass:
			class = def
		case KindMethod:
			ctor = def
		}
	}
	if class.Name == "" {
		t.Error("Service class not extracted")
	}
	if ctor.Name == "" {
		t.Fatal("constructor not extracted")
	}
	if ctor.ParamCount != 1 {
		t.Errorf("constructor ParamCount = %d, want 1", ctor.ParamCount)
	}

	find := findDef(t, syn, "find")
	if find.Kind != KindMethod || find.BranchCount != 2 {
		t.Errorf("find = %+v, want method with 2 branches", find)
	}
}

func TestStructuralRuby(t *testing.T) {
	src := `require 'json'
require_relative 'helpers/format'

class Wallet
  def initialize(balance)
    @balance = balance
  end

  def withdraw(amount)
    raise ArgumentError if amount > @balance
    @balance -= amount
  end
end

def checksum(data)
  data.bytes.reduce(0) { |sum, b| sum ^ b }
end
`
	syn := parseSource(t, "wallet.rb", src)

	if len(syn.Imports) != 2 {
		t.Fatalf("got %d imports, want 2 (method calls must not count)", len(syn.Imports))
	}
	if !findImport(t, syn, "json").Wildcard {
		t.Error("require binds no name, should be wildcard")
	}
	rel := findImport(t, syn, "./helpers/format")
	if rel.Line != 2 {
		t.Errorf("require_relative Line = %d, want 2", rel.Line)
	}

	if findDef(t, syn, "Wallet").Kind != KindClass {
		t.Error("Wallet should be a class")
	}
	if findDef(t, syn, "initialize").Kind != KindMethod {
		t.Error("initialize should be a method")
	}

	withdraw := findDef(t, syn, "withdraw")
	if withdraw.BranchCount != 1 {
		t.Errorf("withdraw.BranchCount = %d, want 1 (if modifier)", withdraw.BranchCount)
	}

	if findDef(t, syn, "checksum").Kind != KindFunction {
		t.Error("top-level def should be a function")
	}
}

func TestStructuralRust(t *testing.T) {
	src := `use std::collections::HashMap;
use std::io::{self, Read};
use serde::Deserialize as De;

struct Config {
    entries: HashMap<String, String>,
}

fn parse(input: &str) -> Config {
    let mut entries = HashMap::new();
    for line in input.lines() {
        if let Some((k, v)) = line.split_once('=') {
            entries.insert(k.to_string(), v.to_string());
        }
    }
    Config { entries }
}

impl Config {
    fn get(&self, key: &str) -> Option<&String> {
        match self.entries.get(key) {
            Some(v) => Some(v),
            None => None,
        }
    }
}
`
	syn := parseSource(t, "config.rs", src)

	hash := findImport(t, syn, "std::collections::HashMap")
	if len(hash.Names) != 1 || hash.Names[0] != "HashMap" {
		t.Errorf("use binds %v, want [HashMap]", hash.Names)
	}

	io := findImport(t, syn, "std::io")
	if !io.Wildcard {
		t.Error("brace group should be wildcard with trimmed spec")
	}

	de := findImport(t, syn, "serde::Deserialize")
	if len(de.Names) != 1 || de.Names[0] != "De" {
		t.Errorf("use-as binds %v, want [De]", de.Names)
	}

	if findDef(t, syn, "Config").Kind != KindClass {
		t.Error("struct should map to class kind")
	}

	parse := findDef(t, syn, "parse")
	if parse.Kind != KindFunction || parse.ParamCount != 1 {
		t.Errorf("parse = %+v, want function with 1 param", parse)
	}
	if parse.BranchCount != 2 {
		t.Errorf("parse.BranchCount = %d, want 2 (for, if let)", parse.BranchCount)
	}

	get := findDef(t, syn, "get")
	if get.Kind != KindMethod {
		t.Errorf("get.Kind = %v, want method (impl block)", get.Kind)
	}
	if get.ParamCount != 2 {
		t.Errorf("get.ParamCount = %d, want 2 (self, key)", get.ParamCount)
	}
	if get.BranchCount != 2 {
		t.Errorf("get.BranchCount = %d, want 2 (match arms)", get.BranchCount)
	}
}

func TestStructuralC(t *testing.T) {
	src := `#include <stdio.h>
#include "util.h"

int add(int a, int b) {
    return a + b;
}

static int clamp(int v, int lo, int hi) {
    if (v < lo) return lo;
    if (v > hi) return hi;
    return v;
}
`
	syn := parseSource(t, "math.c", src)

	if len(syn.Imports) != 2 {
		t.Fatalf("got %d imports, want 2", len(syn.Imports))
	}
	if !findImport(t, syn, "stdio.h").Wildcard || !findImport(t, syn, "util.h").Wildcard {
		t.Error("includes bind no identifier, should be wildcard")
	}

	add := findDef(t, syn, "add")
	if add.ParamCount != 2 || add.BranchCount != 0 {
		t.Errorf("add = %+v, want 2 params and 0 branches", add)
	}

	clamp := findDef(t, syn, "clamp")
	if clamp.ParamCount != 3 || clamp.BranchCount != 2 {
		t.Errorf("clamp = %+v, want 3 params and 2 branches", clamp)
	}
}

func TestStructuralCPP(t *testing.T) {
	src := `#include <vector>

class Stack {
public:
    void push(int v);
};

void Stack::push(int v) {
    if (v >= 0) {
        items_.push_back(v);
    }
}
`
	syn := parseSource(t, "stack.cpp", src)

	if findDef(t, syn, "Stack").Kind != KindClass {
		t.Error("Stack should be a class")
	}

	push := findDef(t, syn, "Stack::push")
	if push.ParamCount != 1 || push.BranchCount != 1 {
		t.Errorf("push = %+v, want 1 param and 1 branch", push)
	}
}

func TestStructuralTSX(t *testing.T) {
	src := `import React from 'react';

export function Badge(props: { label: string }) {
  return props.label ? <span>{props.label}</span> : null;
}
`
	syn := parseSource(t, "badge.tsx", src)

	if findImport(t, syn, "react").Names[0] != "React" {
		t.Error("default import should bind React")
	}
	badge := findDef(t, syn, "Badge")
	if badge.ParamCount != 1 || badge.BranchCount != 1 {
		t.Errorf("Badge = %+v, want 1 param and 1 branch", badge)
	}
}

func TestStructuralCSharp(t *testing.T) {
	src := `using System;
using System.Text.Json;
using Alias = System.IO.Path;

namespace App
{
    public class Worker
    {
        public Worker(int retries)
        {
            if (retries > 0) { }
        }

        public string Run(string key, bool loud)
        {
            foreach (var c in key)
            {
                if (loud && c == 'x')
                {
                    return Alias.GetFileName(key);
                }
            }
            return key;
        }
    }
}
`
	syn := parseSource(t, "Worker.cs", src)

	if syn.Status != source.StatusOK {
		t.Fatalf("Status = %v (%s), want ok", syn.Status, syn.Reason)
	}

	system := findImport(t, syn, "System")
	if len(system.Names) != 1 || system.Names[0] != "System" {
		t.Errorf("using binds %v, want [System]", system.Names)
	}
	json := findImport(t, syn, "System.Text.Json")
	if len(json.Names) != 1 || json.Names[0] != "Json" {
		t.Errorf("dotted using binds %v, want [Json]", json.Names)
	}
	aliased := findImport(t, syn, "System.IO.Path")
	if len(aliased.Names) != 1 || aliased.Names[0] != "Alias" {
		t.Errorf("alias using binds %v, want [Alias]", aliased.Names)
	}

	if findDef(t, syn, "Worker").Kind == KindFunction {
		t.Error("Worker should surface as class and constructor, not function")
	}

	run := findDef(t, syn, "Run")
	if run.Kind != KindMethod || run.ParamCount != 2 {
		t.Errorf("Run = %+v, want method with 2 params", run)
	}
	if run.BranchCount != 3 {
		t.Errorf("Run.BranchCount = %d, want 3 (foreach, if, &&)", run.BranchCount)
	}
}

func TestStructuralPHP(t *testing.T) {
	src := `<?php
use App\Models\User;
use App\Support\Str as S;
require_once 'bootstrap.php';

class UserRepo
{
    public function find($id, $strict)
    {
        if ($strict && $id > 0) {
            return User::query($id);
        }
        return null;
    }
}

function helper($x)
{
    return $x ? S::pad($x) : 0;
}
`
	syn := parseSource(t, "repo.php", src)

	if syn.Status != source.StatusOK {
		t.Fatalf("Status = %v (%s), want ok", syn.Status, syn.Reason)
	}

	user := findImport(t, syn, "App/Models/User")
	if len(user.Names) != 1 || user.Names[0] != "User" {
		t.Errorf("use binds %v, want [User]", user.Names)
	}
	str := findImport(t, syn, "App/Support/Str")
	if len(str.Names) != 1 || str.Names[0] != "S" {
		t.Errorf("aliased use binds %v, want [S]", str.Names)
	}
	if !findImport(t, syn, "bootstrap.php").Wildcard {
		t.Error("require binds no name, should be wildcard")
	}

	if findDef(t, syn, "UserRepo").Kind != KindClass {
		t.Error("UserRepo should be a class")
	}
	find := findDef(t, syn, "find")
	if find.Kind != KindMethod || find.ParamCount != 2 {
		t.Errorf("find = %+v, want method with 2 params", find)
	}
	if find.BranchCount != 2 {
		t.Errorf("find.BranchCount = %d, want 2 (if, &&)", find.BranchCount)
	}
	helper := findDef(t, syn, "helper")
	if helper.Kind != KindFunction || helper.BranchCount != 1 {
		t.Errorf("helper = %+v, want function with 1 branch (ternary)", helper)
	}
}

func TestStructuralShell(t *testing.T) {
	src := `#!/usr/bin/env bash
source ./lib/common.sh
. "./lib/extra.sh"

deploy() {
    if [ -z "$1" ]; then
        return 1
    fi
    for host in "$@"; do
        echo "$host"
    done
}

function cleanup {
    case "$1" in
        tmp) rm -rf /tmp/build ;;
        log) rm -f ./build.log ;;
    esac
}
`
	syn := parseSource(t, "deploy.sh", src)

	if syn.Status != source.StatusOK {
		t.Fatalf("Status = %v (%s), want ok", syn.Status, syn.Reason)
	}

	if len(syn.Imports) != 2 {
		t.Fatalf("got %d imports, want 2 (plain commands must not count)", len(syn.Imports))
	}
	common := findImport(t, syn, "./lib/common.sh")
	if !common.Wildcard || common.Line != 2 {
		t.Errorf("source = %+v, want wildcard at line 2", common)
	}
	extra := findImport(t, syn, "./lib/extra.sh")
	if !extra.Wildcard {
		t.Error("dot-sourcing should be wildcard with quotes trimmed")
	}

	deploy := findDef(t, syn, "deploy")
	if deploy.Kind != KindFunction || deploy.BranchCount != 2 {
		t.Errorf("deploy = %+v, want function with 2 branches (if, for)", deploy)
	}
	cleanup := findDef(t, syn, "cleanup")
	if cleanup.Kind != KindFunction || cleanup.BranchCount != 2 {
		t.Errorf("cleanup = %+v, want function with 2 branches (case arms)", cleanup)
	}
}

func TestStructuralMultiLineImportSpan(t *testing.T) {
	src := `from helpers import (
    alpha,
    beta,
)

print(alpha)
`
	syn := parseSource(t, "spans.py", src)

	imp := findImport(t, syn, "helpers")
	if imp.Line != 1 {
		t.Errorf("Line = %d, want 1", imp.Line)
	}
	if imp.EndLine != 4 {
		t.Errorf("EndLine = %d, want 4 (statement spans its closing paren)", imp.EndLine)
	}
	if len(imp.Names) != 2 {
		t.Errorf("Names = %v, want [alpha beta]", imp.Names)
	}
}

func TestStructuralSyntaxErrors(t *testing.T) {
	syn := parseSource(t, "broken.go", "package main\n\nfunc broken( {\n\tif x {\n}\n")

	if syn.Status != source.StatusPartial {
		t.Errorf("Status = %v, want partial", syn.Status)
	}
	if syn.Reason != "syntax errors" {
		t.Errorf("Reason = %q, want %q", syn.Reason, "syntax errors")
	}
	if syn.Tokens == nil || !syn.Tokens.Contains("broken") {
		t.Error("tokens should still be indexed for files with syntax errors")
	}
}

func TestStructuralEmptyFile(t *testing.T) {
	syn := parseSource(t, "empty.go", "")
	if syn.Status != source.StatusOK {
		t.Errorf("Status = %v, want ok", syn.Status)
	}
	if len(syn.Imports) != 0 || len(syn.Definitions) != 0 {
		t.Error("empty file should produce no imports or definitions")
	}
}
